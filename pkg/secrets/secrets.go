// Package secrets fetches per-customer integration credentials from AWS
// Secrets Manager. Secrets are addressed by a customer/integration path
// (e.g. "acme/hubspot") and hold a flat JSON object of credential fields.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"go.uber.org/zap"

	"github.com/hookline/crmq/pkg/config"
)

// Blob is one decoded credential secret. Values live only in process
// memory for the duration of a run and are never logged.
type Blob map[string]string

// ParseBlob decodes the secret JSON. Non-string values are stringified so
// lookups stay uniform.
func ParseBlob(raw []byte) (Blob, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
	}
	blob := make(Blob, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			blob[k] = s
		} else {
			blob[k] = fmt.Sprint(v)
		}
	}
	return blob, nil
}

func (b Blob) Get(key string) string { return b[key] }

func (b Blob) Has(key string) bool { return b[key] != "" }

// Keys returns the sorted key names. Used in credential error messages so
// an operator can see what the secret actually contains without exposing
// any values.
func (b Blob) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store wraps the Secrets Manager client.
type Store struct {
	sm     secretsmanageriface.SecretsManagerAPI
	logger *zap.Logger
}

// NewStore builds a store from the shared AWS config (profile + region,
// falling back to the default credential chain).
func NewStore(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		Profile:           cfg.AWSProfile,
		Config:            *aws.NewConfig().WithRegion(cfg.AWSRegion),
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &Store{
		sm:     secretsmanager.New(sess),
		logger: logger,
	}, nil
}

// NewStoreWithSession builds a store from operator-pasted short-lived
// credentials (the output of `aws configure export-credentials`).
func NewStoreWithSession(creds *SessionCredentials, region string, logger *zap.Logger) (*Store, error) {
	sess, err := session.NewSession(aws.NewConfig().
		WithRegion(region).
		WithCredentials(credentials.NewStaticCredentials(
			creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)))
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &Store{
		sm:     secretsmanager.New(sess),
		logger: logger,
	}, nil
}

// NewStoreWithClient is for tests.
func NewStoreWithClient(sm secretsmanageriface.SecretsManagerAPI, logger *zap.Logger) *Store {
	return &Store{sm: sm, logger: logger}
}

// Fetch retrieves and decodes the secret at path. Not-found and
// expired-caller-credential failures surface verbatim to the operator.
func (s *Store) Fetch(ctx context.Context, path string) (Blob, error) {
	s.logger.Info("Fetching secret", zap.String("secret_path", path))

	out, err := s.sm.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		s.logger.Error("Failed to fetch secret", zap.String("secret_path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch secret %q: %w", path, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %q has no string payload", path)
	}

	blob, err := ParseBlob([]byte(*out.SecretString))
	if err != nil {
		return nil, fmt.Errorf("secret %q: %w", path, err)
	}

	s.logger.Debug("Secret fetched", zap.String("secret_path", path), zap.Strings("keys", blob.Keys()))
	return blob, nil
}
