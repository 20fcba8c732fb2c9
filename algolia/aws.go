package algolia

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
)

// SecretsManagerClient defines the interface for AWS Secrets Manager operations.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecrets reads credentials stored at "{environment}/algolia" as JSON with
// app_id and write_api_key fields.
func AWSSecrets(ctx context.Context, client SecretsManagerClient, env string) FetchSecrets {
	secretPath := env + "/algolia"
	return secretsFrom(ctx, client, secretPath, "at path "+secretPath)
}

// AWSSecretsFromARN reads credentials from the secret with the given ARN.
func AWSSecretsFromARN(ctx context.Context, client SecretsManagerClient, secretArn string) FetchSecrets {
	return secretsFrom(ctx, client, secretArn, "with ARN "+secretArn)
}

func secretsFrom(ctx context.Context, client SecretsManagerClient, secretID, where string) FetchSecrets {
	return func() (Secrets, error) {
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		if err != nil {
			return Secrets{}, errors.Wrapf(err, "failed to get secret from AWS Secrets Manager %s", where)
		}

		if result.SecretString == nil {
			return Secrets{}, errors.Newf("secret %s has no string value", where)
		}

		var secrets Secrets
		if err := json.Unmarshal([]byte(aws.ToString(result.SecretString)), &secrets); err != nil {
			return Secrets{}, errors.Wrapf(err, "failed to unmarshal secret JSON %s", where)
		}

		return secrets, nil
	}
}

// ResolveSecrets picks a credential source in order of precedence: a secret
// ARN, an environment path in AWS Secrets Manager, static credentials, and
// finally the ALGOLIA_* environment variables.
func ResolveSecrets(ctx context.Context, secretArn, env, appID, apiKey string) (FetchSecrets, error) {
	if secretArn == "" && env == "" {
		if appID != "" && apiKey != "" {
			return StaticSecrets(appID, apiKey), nil
		}
		return EnvSecrets(), nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	client := secretsmanager.NewFromConfig(cfg)
	if secretArn != "" {
		return AWSSecretsFromARN(ctx, client, secretArn), nil
	}
	return AWSSecrets(ctx, client, env), nil
}
