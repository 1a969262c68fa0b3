package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	pkgerrors "trendscout/pkg/errors"
)

// Client is the subset of the DynamoDB API used by the repositories.
// *dynamodb.Client satisfies it.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// Key attribute names of the single table
const (
	attrPK     = "PK"
	attrSK     = "SK"
	attrGSI1PK = "GSI1PK"
	attrGSI1SK = "GSI1SK"
	gsi1Name   = "GSI1"
)

func userPK(userID string) string {
	return "USER#" + userID
}

func tableKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: pk},
		attrSK: &types.AttributeValueMemberS{Value: sk},
	}
}

// classifyError maps DynamoDB API errors onto application error types
func classifyError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return pkgerrors.NewDatabaseError(operation, err)
	}

	switch ae.ErrorCode() {
	case "ResourceNotFoundException":
		return pkgerrors.NewUnavailableError("dynamodb table").WithCause(err)
	case "ConditionalCheckFailedException":
		return pkgerrors.NewDatabaseError(operation, err).WithCode("CONFLICT")
	case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
		return pkgerrors.NewRateLimitError("dynamodb").WithCause(err)
	case "ServiceUnavailable", "InternalServerError":
		return pkgerrors.NewUnavailableError("dynamodb").WithCause(err)
	case "ValidationException":
		return pkgerrors.NewDatabaseError(operation, err).WithCode("INVALID_REQUEST")
	}
	return pkgerrors.NewDatabaseError(operation, err)
}
