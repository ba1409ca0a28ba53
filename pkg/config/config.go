package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Platform identifies which CRM a query targets.
type Platform string

const (
	PlatformHubSpot    Platform = "hubspot"
	PlatformSalesforce Platform = "salesforce"
)

// Query types shared by both platforms. "search" is HubSpot only,
// "custom" (raw SOQL) is Salesforce only.
const (
	QueryCount  = "count"
	QueryList   = "list"
	QueryAll    = "all"
	QueryShape  = "shape"
	QuerySearch = "search"
	QueryCustom = "custom"
)

// Config holds the AWS environment settings shared by every command.
type Config struct {
	AWSProfile string
	AWSRegion  string
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		AWSProfile: os.Getenv("AWS_PROFILE"),
		AWSRegion:  os.Getenv("AWS_REGION"),
	}
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "eu-west-1"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AWSRegion == "" {
		return fmt.Errorf("AWS_REGION is required")
	}
	// AWSProfile is optional; the default credential chain applies without it
	return nil
}

// Query is one fully-specified query run, validated once before any
// network call is made.
type Query struct {
	Platform    Platform
	SecretPath  string // customer/integration
	Object      string
	Type        string
	Limit       int
	Properties  []string
	CustomQuery string // raw SOQL, Salesforce "custom" only

	// AlwaysRefresh forces a fresh token via OAuth before running.
	AlwaysRefresh bool
	// AutoRefreshOnExpire re-fetches the secret and retries once on a 401
	// (Salesforce only).
	AutoRefreshOnExpire bool

	// OutputDir is where "all" and "shape" write their spreadsheet.
	OutputDir string
}

var queryTypes = map[Platform][]string{
	PlatformHubSpot:    {QueryCount, QueryList, QueryAll, QueryShape, QuerySearch},
	PlatformSalesforce: {QueryCount, QueryList, QueryAll, QueryShape, QueryCustom},
}

func (q *Query) Validate() error {
	switch q.Platform {
	case PlatformHubSpot, PlatformSalesforce:
	default:
		return fmt.Errorf("unknown platform %q (expected hubspot or salesforce)", q.Platform)
	}
	if q.SecretPath == "" {
		return fmt.Errorf("secret path is required (format: customer/integration)")
	}
	if q.Object == "" {
		return fmt.Errorf("object type is required")
	}

	allowed := queryTypes[q.Platform]
	valid := false
	for _, t := range allowed {
		if q.Type == t {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("query type %q is not valid for %s (expected one of: %s)",
			q.Type, q.Platform, strings.Join(allowed, ", "))
	}

	if q.Type == QueryCustom && q.CustomQuery == "" {
		return fmt.Errorf("custom query type requires a SOQL statement")
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	// An empty OutputDir means the caller keeps the workbook in memory
	// (the web download path); when set it must exist before we run.
	if q.OutputDir != "" {
		info, err := os.Stat(q.OutputDir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("output directory does not exist: %s", q.OutputDir)
		}
	}
	return nil
}
