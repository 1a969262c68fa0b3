package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"trendscout/domain/core/entities"
	pkgerrors "trendscout/pkg/errors"
)

const (
	explorationSKPrefix = "EXPLORATION#"
	explorationMetadata = "METADATA"
	payloadPartPrefix   = "EXPLORATIONPART#"
	anonymousUser       = "anonymous"

	// sortableTime keeps a fixed width so sort keys order chronologically
	sortableTime = "20060102T150405.000000000Z"
)

// explorationItem represents the DynamoDB item structure for a stored result.
// The result is kept as gzipped JSON in Payload, or in PayloadParts sibling
// items when it does not fit in one.
type explorationItem struct {
	PK               string `dynamodbav:"PK"`
	SK               string `dynamodbav:"SK"`
	GSI1PK           string `dynamodbav:"GSI1PK"`
	GSI1SK           string `dynamodbav:"GSI1SK"`
	EntityType       string `dynamodbav:"EntityType"`
	ExplorationID    string `dynamodbav:"ExplorationID"`
	UserID           string `dynamodbav:"UserID"`
	SeedKeyword      string `dynamodbav:"SeedKeyword"`
	Strategy         string `dynamodbav:"Strategy"`
	Depth            int    `dynamodbav:"Depth"`
	DiscoveriesFound int    `dynamodbav:"DiscoveriesFound"`
	CompletedAt      string `dynamodbav:"CompletedAt"`
	Payload          []byte `dynamodbav:"Payload,omitempty"`
	PayloadParts     int    `dynamodbav:"PayloadParts,omitempty"`
}

// payloadPartItem holds one chunk of a payload too large for its result item.
// Part sort keys sit outside the EXPLORATION# range so listings skip them.
type payloadPartItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	EntityType    string `dynamodbav:"EntityType"`
	ExplorationID string `dynamodbav:"ExplorationID"`
	Data          []byte `dynamodbav:"Data"`
}

// ExplorationRepository stores exploration results in the single table.
// Results are partitioned by user and indexed by id on GSI1.
type ExplorationRepository struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewExplorationRepository creates a new ExplorationRepository
func NewExplorationRepository(client Client, tableName string, logger *zap.Logger) *ExplorationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExplorationRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func explorationPK(userID string) string {
	if userID == "" {
		userID = anonymousUser
	}
	return userPK(userID)
}

func explorationSK(result *entities.ExplorationResult) string {
	return explorationSKPrefix + result.CompletedAt.UTC().Format(sortableTime) + "#" + result.ExplorationID
}

func explorationGSI1PK(explorationID string) string {
	return "EXPLORATIONID#" + explorationID
}

func payloadPartSK(explorationID string, n int) string {
	return fmt.Sprintf("%s%s#%04d", payloadPartPrefix, explorationID, n)
}

// toItem builds the result item and, for oversized payloads, its part items
func toItem(result *entities.ExplorationResult) (explorationItem, []payloadPartItem, error) {
	payload, err := encodePayload(result)
	if err != nil {
		return explorationItem{}, nil, err
	}

	item := explorationItem{
		PK:               explorationPK(result.UserID),
		SK:               explorationSK(result),
		GSI1PK:           explorationGSI1PK(result.ExplorationID),
		GSI1SK:           explorationMetadata,
		EntityType:       "EXPLORATION",
		ExplorationID:    result.ExplorationID,
		UserID:           result.UserID,
		SeedKeyword:      result.SeedKeyword,
		Strategy:         result.Strategy.String(),
		Depth:            result.Depth,
		DiscoveriesFound: len(result.Discoveries),
		CompletedAt:      result.CompletedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(payload) <= maxPartBytes {
		item.Payload = payload
		return item, nil, nil
	}

	chunks := splitPayload(payload, maxPartBytes)
	parts := make([]payloadPartItem, 0, len(chunks))
	for n, chunk := range chunks {
		parts = append(parts, payloadPartItem{
			PK:            item.PK,
			SK:            payloadPartSK(result.ExplorationID, n),
			EntityType:    "EXPLORATION_PART",
			ExplorationID: result.ExplorationID,
			Data:          chunk,
		})
	}
	item.PayloadParts = len(parts)
	return item, parts, nil
}

// toResult decodes an item, reassembling its payload parts when it has any
func (r *ExplorationRepository) toResult(ctx context.Context, item explorationItem) (*entities.ExplorationResult, error) {
	payload := item.Payload
	if item.PayloadParts > 0 {
		var err error
		if payload, err = r.loadParts(ctx, item); err != nil {
			return nil, err
		}
	}

	result, err := decodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("exploration %s: %w", item.ExplorationID, err)
	}
	return result, nil
}

func (r *ExplorationRepository) loadParts(ctx context.Context, item explorationItem) ([]byte, error) {
	keyCond := expression.Key(attrPK).Equal(expression.Value(item.PK)).
		And(expression.Key(attrSK).BeginsWith(payloadPartPrefix + item.ExplorationID + "#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	var payload []byte
	count := 0
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyError("Query", err)
		}
		var parts []payloadPartItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &parts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload parts: %w", err)
		}
		for _, p := range parts {
			payload = append(payload, p.Data...)
			count++
		}
	}

	if count != item.PayloadParts {
		return nil, pkgerrors.NewDatabaseError("Query",
			fmt.Errorf("exploration %s has %d of %d payload parts", item.ExplorationID, count, item.PayloadParts))
	}
	return payload, nil
}

func (r *ExplorationRepository) putParts(ctx context.Context, parts []payloadPartItem) error {
	for _, part := range parts {
		av, err := attributevalue.MarshalMap(part)
		if err != nil {
			return fmt.Errorf("failed to marshal payload part: %w", err)
		}
		if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      av,
		}); err != nil {
			return classifyError("PutItem", err)
		}
	}
	return nil
}

// Save implements ports.ExplorationRepository. Results are write-once.
func (r *ExplorationRepository) Save(ctx context.Context, result *entities.ExplorationResult) error {
	if result == nil || result.ExplorationID == "" {
		return pkgerrors.NewValidationError("exploration result with an ID is required")
	}

	item, parts, err := toItem(result)
	if err != nil {
		return err
	}

	// Parts go first so a visible result item is always complete
	if err := r.putParts(ctx, parts); err != nil {
		r.logger.Error("Failed to save exploration payload parts",
			zap.String("explorationID", result.ExplorationID),
			zap.Int("parts", len(parts)),
			zap.Error(err),
		)
		return err
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal exploration: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(attrPK).AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		r.logger.Error("Failed to save exploration to DynamoDB",
			zap.String("explorationID", result.ExplorationID),
			zap.Error(err),
		)
		return classifyError("PutItem", err)
	}

	r.logger.Debug("Saved exploration to DynamoDB",
		zap.String("explorationID", result.ExplorationID),
		zap.String("PK", item.PK),
		zap.String("SK", item.SK),
		zap.Int("payloadParts", item.PayloadParts),
	)
	return nil
}

// GetByID implements ports.ExplorationRepository using GSI1
func (r *ExplorationRepository) GetByID(ctx context.Context, explorationID string) (*entities.ExplorationResult, error) {
	keyCond := expression.Key(attrGSI1PK).Equal(expression.Value(explorationGSI1PK(explorationID))).
		And(expression.Key(attrGSI1SK).Equal(expression.Value(explorationMetadata)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(gsi1Name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, classifyError("Query", err)
	}
	if len(out.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("exploration")
	}

	var item explorationItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exploration: %w", err)
	}
	return r.toResult(ctx, item)
}

// ListByUser implements ports.ExplorationRepository, newest first
func (r *ExplorationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.ExplorationResult, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("user ID is required")
	}

	keyCond := expression.Key(attrPK).Equal(expression.Value(userPK(userID))).
		And(expression.Key(attrSK).BeginsWith(explorationSKPrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, classifyError("Query", err)
	}

	var items []explorationItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal explorations: %w", err)
	}

	results := make([]*entities.ExplorationResult, 0, len(items))
	for _, item := range items {
		result, err := r.toResult(ctx, item)
		if err != nil {
			r.logger.Warn("Skipping unreadable exploration", zap.String("explorationID", item.ExplorationID), zap.Error(err))
			continue
		}
		results = append(results, result)
	}
	return results, nil
}
