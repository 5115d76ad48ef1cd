// Package secrets resolves credentials (API keys, DSNs, signing keys) by id.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

// ErrNotFound is returned when no secret exists under an id.
var ErrNotFound = errors.New("secret not found")

// Source is anything that can resolve a secret id to its value.
type Source interface {
	GetSecret(ctx context.Context, id string) (string, error)
}

type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Manager reads secrets from AWS Secrets Manager.
type Manager struct {
	client secretsManagerAPI
}

func NewManager(client secretsManagerAPI) *Manager {
	return &Manager{client: client}
}

func NewManagerFromConfig(cfg aws.Config) *Manager {
	return NewManager(secretsmanager.NewFromConfig(cfg))
}

func (m *Manager) GetSecret(ctx context.Context, id string) (string, error) {
	out, err := m.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return "", fmt.Errorf("secretsmanager get %s: %w", id, err)
	}
	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	return string(out.SecretBinary), nil
}

// Env resolves ids from environment variables, for local runs. The id is
// upper-cased and every character outside [A-Z0-9] becomes '_', so
// "celerix/ivr/openai" reads CELERIX_IVR_OPENAI.
type Env struct{}

func (Env) GetSecret(_ context.Context, id string) (string, error) {
	name := EnvName(id)
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s (env %s)", ErrNotFound, id, name)
	}
	return v, nil
}

// EnvName maps a secret id to its environment variable name.
func EnvName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		default:
			return '_'
		}
	}, id)
}

// Resolve returns value when set, otherwise looks id up in src. Both empty yields "".
func Resolve(ctx context.Context, src Source, value, id string) (string, error) {
	if value != "" || id == "" {
		return value, nil
	}
	if src == nil {
		return "", fmt.Errorf("secret %s requested but no secret source configured", id)
	}
	return src.GetSecret(ctx, id)
}
