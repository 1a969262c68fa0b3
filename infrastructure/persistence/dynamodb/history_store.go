package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"trendscout/domain/core/entities"
	"trendscout/domain/core/valueobjects"
	pkgerrors "trendscout/pkg/errors"
)

const (
	historySK = "HISTORY"

	// maxHistoryKeywords caps each keyword list so the item stays far below
	// DynamoDB's 400 KB limit. The oldest keywords are dropped first.
	maxHistoryKeywords = 500

	historyWriteAttempts = 3
)

// historyItem represents the DynamoDB item holding a user's keyword history.
// Each list is ordered oldest first. Items written as string sets by older
// versions still load.
type historyItem struct {
	PK         string   `dynamodbav:"PK"`
	SK         string   `dynamodbav:"SK"`
	EntityType string   `dynamodbav:"EntityType"`
	UserID     string   `dynamodbav:"UserID"`
	Searched   []string `dynamodbav:"Searched,omitempty"`
	Tracked    []string `dynamodbav:"Tracked,omitempty"`
	Clicked    []string `dynamodbav:"Clicked,omitempty"`
	Version    int      `dynamodbav:"Version"`
	UpdatedAt  string   `dynamodbav:"UpdatedAt"`
}

// HistoryStore keeps one bounded history item per user. Writes merge into
// the stored lists under an optimistic version check.
type HistoryStore struct {
	client    Client
	tableName string
	limit     int
	logger    *zap.Logger
	now       func() time.Time
}

// NewHistoryStore creates a new HistoryStore
func NewHistoryStore(client Client, tableName string, logger *zap.Logger) *HistoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryStore{
		client:    client,
		tableName: tableName,
		limit:     maxHistoryKeywords,
		logger:    logger,
		now:       time.Now,
	}
}

// Load implements ports.UserHistoryStore. A user without an item has an
// empty history.
func (s *HistoryStore) Load(ctx context.Context, userID string) (*entities.UserKeywordHistory, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("user ID is required")
	}

	item, err := s.get(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return entities.NewUserKeywordHistory(userID, nil, nil, nil), nil
	}

	s.logger.Debug("Loaded keyword history",
		zap.String("userID", userID),
		zap.Int("searched", len(item.Searched)),
		zap.Int("tracked", len(item.Tracked)),
		zap.Int("clicked", len(item.Clicked)),
	)
	return entities.NewUserKeywordHistory(userID, item.Searched, item.Tracked, item.Clicked), nil
}

// RecordExploration implements ports.UserHistoryStore
func (s *HistoryStore) RecordExploration(ctx context.Context, userID, seedKeyword string, keywords []string) error {
	if userID == "" {
		return pkgerrors.NewValidationError("user ID is required")
	}
	var searched []string
	if seed := valueobjects.NormalizeKeyword(seedKeyword); seed != "" {
		searched = []string{seed}
	}
	return s.merge(ctx, userID, historyLists{searched: searched, clicked: normalizeAll(keywords)})
}

// Track adds keywords to the user's tracked list
func (s *HistoryStore) Track(ctx context.Context, userID string, keywords []string) error {
	if userID == "" {
		return pkgerrors.NewValidationError("user ID is required")
	}
	return s.merge(ctx, userID, historyLists{tracked: normalizeAll(keywords)})
}

type historyLists struct {
	searched, tracked, clicked []string
}

func (l historyLists) empty() bool {
	return len(l.searched)+len(l.tracked)+len(l.clicked) == 0
}

func (s *HistoryStore) get(ctx context.Context, userID string, consistent bool) (*historyItem, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            tableKey(userPK(userID), historySK),
		ConsistentRead: aws.Bool(consistent),
	})
	if err != nil {
		return nil, classifyError("GetItem", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item historyItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return &item, nil
}

// merge folds added into the stored lists. A concurrent writer makes the
// conditional put fail, and the merge is retried on a fresh read.
func (s *HistoryStore) merge(ctx context.Context, userID string, added historyLists) error {
	if added.empty() {
		return nil
	}

	for attempt := 1; ; attempt++ {
		current, err := s.get(ctx, userID, true)
		if err != nil {
			return err
		}
		if current == nil {
			current = &historyItem{PK: userPK(userID), SK: historySK}
		}

		err = s.put(ctx, userID, current, added)
		if err == nil {
			return nil
		}

		var conflict *types.ConditionalCheckFailedException
		if !errors.As(err, &conflict) || attempt == historyWriteAttempts {
			s.logger.Error("Failed to update keyword history",
				zap.String("userID", userID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return classifyError("PutItem", err)
		}
		s.logger.Debug("Keyword history changed concurrently, retrying",
			zap.String("userID", userID),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *HistoryStore) put(ctx context.Context, userID string, current *historyItem, added historyLists) error {
	next := historyItem{
		PK:         userPK(userID),
		SK:         historySK,
		EntityType: "HISTORY",
		UserID:     userID,
		Searched:   appendRecent(current.Searched, added.searched, s.limit),
		Tracked:    appendRecent(current.Tracked, added.tracked, s.limit),
		Clicked:    appendRecent(current.Clicked, added.clicked, s.limit),
		Version:    current.Version + 1,
		UpdatedAt:  s.now().UTC().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(next)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	cond := expression.Name(attrPK).AttributeNotExists()
	if current.Version > 0 {
		cond = expression.Name("Version").Equal(expression.Value(current.Version))
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build history condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

// appendRecent moves added keywords to the newest end of list and keeps at
// most limit entries
func appendRecent(list, added []string, limit int) []string {
	if len(added) == 0 {
		return list
	}

	drop := make(map[string]struct{}, len(added))
	for _, k := range added {
		drop[k] = struct{}{}
	}
	out := make([]string, 0, len(list)+len(added))
	for _, k := range list {
		if _, ok := drop[k]; !ok {
			out = append(out, k)
		}
	}
	out = append(out, added...)

	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func normalizeAll(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		n := valueobjects.NormalizeKeyword(k)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
