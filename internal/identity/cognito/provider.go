// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

/*
Package cognito adapts an AWS Cognito user pool to the [identity.Provider]
contract.

It speaks the USER_PASSWORD_AUTH flow and normalizes every Cognito exception
onto the closed reason set — an unrecognized exception degrades to
service-unavailable rather than leaking a raw SDK error upward.
*/
package cognito

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/sentra-id/sentra/internal/identity"
	"github.com/sentra-id/sentra/internal/platform/apperr"
)

// challengeResponseUsername and friends are the Cognito wire keys for
// challenge responses and auth parameters.
const (
	paramUsername    = "USERNAME"
	paramPassword    = "PASSWORD"
	paramSecretHash  = "SECRET_HASH"
	paramNewPassword = "NEW_PASSWORD"

	// userAttributePrefix namespaces attributes submitted during the
	// NEW_PASSWORD_REQUIRED challenge.
	userAttributePrefix = "userAttributes."
)

// ErrMissingClientID is returned by [New] when the user pool client ID is
// absent. Surfaced at startup as a configuration error, never to end users.
var ErrMissingClientID = errors.New("cognito: client id is required")

// Provider implements [identity.Provider] against a Cognito user pool client.
type Provider struct {
	client       *cip.Client
	clientID     string
	clientSecret string
}

// New constructs the adapter. clientSecret may be empty for public clients.
func New(client *cip.Client, clientID, clientSecret string) (*Provider, error) {
	if clientID == "" {
		return nil, apperr.Misconfigured("The identity provider client id is missing", ErrMissingClientID)
	}
	return &Provider{client: client, clientID: clientID, clientSecret: clientSecret}, nil
}

// InitiateAuth performs the primary credential exchange.
func (p *Provider) InitiateAuth(ctx context.Context, username, password string) (*identity.AuthResult, *identity.Challenge, error) {
	params := map[string]string{
		paramUsername: username,
		paramPassword: password,
	}
	if hash := p.secretHash(username); hash != "" {
		params[paramSecretHash] = hash
	}

	out, err := p.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(p.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, nil, mapError(err)
	}

	if out.ChallengeName == types.ChallengeNameTypeNewPasswordRequired {
		return nil, &identity.Challenge{
			Kind:   identity.ChallengeNewPassword,
			Handle: aws.ToString(out.Session),
		}, nil
	}

	result := out.AuthenticationResult
	if result == nil || aws.ToString(result.AccessToken) == "" {
		return nil, nil, &identity.ProviderError{
			Reason: identity.ReasonServiceUnavailable,
			Detail: "authentication succeeded but no token was issued",
		}
	}

	return &identity.AuthResult{
		Token: aws.ToString(result.AccessToken),
		TTL:   time.Duration(result.ExpiresIn) * time.Second,
	}, nil, nil
}

// RespondToChallenge completes the NEW_PASSWORD_REQUIRED challenge.
//
// Attribute keys other than the new credential are forwarded under the
// provider's userAttributes namespace; the provider decides whether it
// accepts them in this exchange.
func (p *Provider) RespondToChallenge(ctx context.Context, username, handle string, attributes map[string]string) (*identity.AuthResult, error) {
	responses := map[string]string{
		paramUsername: username,
	}
	if hash := p.secretHash(username); hash != "" {
		responses[paramSecretHash] = hash
	}
	for name, value := range attributes {
		if name == identity.ChallengeAttrNewPassword {
			responses[paramNewPassword] = value
			continue
		}
		responses[userAttributePrefix+name] = value
	}

	out, err := p.client.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName:      types.ChallengeNameTypeNewPasswordRequired,
		ClientId:           aws.String(p.clientID),
		Session:            aws.String(handle),
		ChallengeResponses: responses,
	})
	if err != nil {
		return nil, mapError(err)
	}

	result := out.AuthenticationResult
	if result == nil || aws.ToString(result.AccessToken) == "" {
		// Accepted, no token issued: the caller re-authenticates with the
		// rotated credential.
		return nil, nil
	}

	return &identity.AuthResult{
		Token: aws.ToString(result.AccessToken),
		TTL:   time.Duration(result.ExpiresIn) * time.Second,
	}, nil
}

// RequestPasswordReset triggers delivery of a confirmation code.
func (p *Provider) RequestPasswordReset(ctx context.Context, identifier string) error {
	input := &cip.ForgotPasswordInput{
		ClientId: aws.String(p.clientID),
		Username: aws.String(identifier),
	}
	if hash := p.secretHash(identifier); hash != "" {
		input.SecretHash = aws.String(hash)
	}

	if _, err := p.client.ForgotPassword(ctx, input); err != nil {
		return mapError(err)
	}
	return nil
}

// ConfirmPasswordReset finalizes a reset with the delivered code.
func (p *Provider) ConfirmPasswordReset(ctx context.Context, identifier, code, newCredential string) error {
	input := &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(p.clientID),
		Username:         aws.String(identifier),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newCredential),
	}
	if hash := p.secretHash(identifier); hash != "" {
		input.SecretHash = aws.String(hash)
	}

	if _, err := p.client.ConfirmForgotPassword(ctx, input); err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateAttribute updates a contact attribute on the authenticated account.
func (p *Provider) UpdateAttribute(ctx context.Context, accessToken, name, value string) error {
	_, err := p.client.UpdateUserAttributes(ctx, &cip.UpdateUserAttributesInput{
		AccessToken: aws.String(accessToken),
		UserAttributes: []types.AttributeType{
			{Name: aws.String(name), Value: aws.String(value)},
		},
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

// RequestAttributeVerification triggers delivery of the attribute's
// verification challenge.
func (p *Provider) RequestAttributeVerification(ctx context.Context, accessToken, name string) error {
	_, err := p.client.GetUserAttributeVerificationCode(ctx, &cip.GetUserAttributeVerificationCodeInput{
		AccessToken:   aws.String(accessToken),
		AttributeName: aws.String(name),
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

// secretHash computes the Cognito SECRET_HASH for confidential clients,
// or "" when no client secret is configured.
func (p *Provider) secretHash(username string) string {
	if p.clientSecret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(p.clientSecret))
	mac.Write([]byte(username + p.clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// # Error Normalization

// mapError folds every Cognito exception onto the closed reason set.
func mapError(err error) *identity.ProviderError {
	var (
		userNotFound    *types.UserNotFoundException
		notAuthorized   *types.NotAuthorizedException
		invalidParam    *types.InvalidParameterException
		codeMismatch    *types.CodeMismatchException
		codeExpired     *types.ExpiredCodeException
		tooManyRequests *types.TooManyRequestsException
		limitExceeded   *types.LimitExceededException
		invalidPassword *types.InvalidPasswordException
	)

	switch {
	case errors.As(err, &userNotFound):
		return providerError(identity.ReasonNotFound, userNotFound.ErrorMessage())
	case errors.As(err, &notAuthorized):
		return providerError(identity.ReasonNotAuthorized, notAuthorized.ErrorMessage())
	case errors.As(err, &invalidParam):
		return providerError(identity.ReasonInvalidParameter, invalidParam.ErrorMessage())
	case errors.As(err, &codeMismatch):
		return providerError(identity.ReasonCodeMismatch, codeMismatch.ErrorMessage())
	case errors.As(err, &codeExpired):
		return providerError(identity.ReasonCodeExpired, codeExpired.ErrorMessage())
	case errors.As(err, &tooManyRequests):
		return providerError(identity.ReasonRateLimited, tooManyRequests.ErrorMessage())
	case errors.As(err, &limitExceeded):
		return providerError(identity.ReasonRateLimited, limitExceeded.ErrorMessage())
	case errors.As(err, &invalidPassword):
		return providerError(identity.ReasonPolicyViolation, invalidPassword.ErrorMessage())
	}

	// Unrecognized reasons map to service-unavailable, never raw.
	var api smithy.APIError
	if errors.As(err, &api) {
		return providerError(identity.ReasonServiceUnavailable, api.ErrorCode()+": "+api.ErrorMessage())
	}
	return providerError(identity.ReasonServiceUnavailable, err.Error())
}

func providerError(reason identity.Reason, detail string) *identity.ProviderError {
	return &identity.ProviderError{Reason: reason, Detail: detail}
}
