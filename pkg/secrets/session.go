package secrets

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionCredentials are the short-lived cloud credentials an operator
// obtains out of band (aws sso login + aws configure export-credentials)
// and pastes into the tool. The tool never performs that login itself.
type SessionCredentials struct {
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken"`
	Expiration      string `json:"Expiration"`
}

// ParseSessionCredentials decodes the exported credential JSON.
func ParseSessionCredentials(raw []byte) (*SessionCredentials, error) {
	var creds SessionCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON: %w", err)
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, fmt.Errorf("credentials JSON must contain AccessKeyId and SecretAccessKey")
	}
	return &creds, nil
}

// ExpiresIn returns how long the session credentials remain valid. The
// value is advisory only, used for an on-screen countdown; expiry is
// enforced by AWS, not by this tool.
func (c *SessionCredentials) ExpiresIn(now time.Time) (time.Duration, bool) {
	if c.Expiration == "" {
		return 0, false
	}
	exp, err := time.Parse(time.RFC3339, c.Expiration)
	if err != nil {
		return 0, false
	}
	return exp.Sub(now), true
}
