package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-verify-api/internal/domain"
)

// API is the subset of *dynamodb.Client the repos use.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// UserRepo provides typed DynamoDB operations for the users table, including
// the per-scope verification fallback attributes.
type UserRepo struct {
	client    API
	tableName string
}

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// Put creates a user. Fails with domain.ErrConflict if the user_id is taken.
func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("user already exists: %w", domain.ErrConflict)
	}
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("user_id", userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks the user up through the email-index GSI. Emails are stored normalized.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("email-index"),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: domain.NormalizeIdentifier(email)}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update applies a partial update. Only account-state fields are accepted here;
// verification attributes go through the dedicated methods below.
func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	for k := range updates {
		if !updatableFields[k] {
			return fmt.Errorf("field %q is not updatable: %w", k, domain.ErrBadRequest)
		}
	}
	return r.update(ctx, userID, updates, nil, "", nil)
}

// GetVerification reads the fallback record for p's code scope.
// The GSI is eventually consistent, so the item is re-read by key.
func (r *UserRepo) GetVerification(ctx context.Context, email string, p domain.Purpose) (domain.VerificationRecord, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return domain.VerificationRecord{}, err
	}
	u, err = r.Get(ctx, u.UserID)
	if err != nil {
		return domain.VerificationRecord{}, err
	}
	return u.Verification(p), nil
}

// SaveVerification writes the token hash and either sets or removes the fallback
// code and expiry together.
func (r *UserRepo) SaveVerification(ctx context.Context, userID string, p domain.Purpose, rec domain.VerificationRecord) error {
	f := fieldsFor(p)
	set := map[string]interface{}{f.TokenHash: rec.TokenHash}
	var remove []string
	if rec.HasCode() {
		set[f.Code] = rec.Code
		set[f.ExpiresAt] = rec.ExpiresAt.Unix()
	} else {
		remove = []string{f.Code, f.ExpiresAt}
	}
	return r.update(ctx, userID, set, remove, "", nil)
}

// ClearVerification removes the token hash, code and expiry for p's scope.
func (r *UserRepo) ClearVerification(ctx context.Context, userID string, p domain.Purpose) error {
	f := fieldsFor(p)
	return r.update(ctx, userID, nil, []string{f.TokenHash, f.Code, f.ExpiresAt}, "", nil)
}

// ConsumeVerification clears p's scope only if the stored code still equals code.
// A concurrent consumer that lost the race gets domain.ErrConflict.
func (r *UserRepo) ConsumeVerification(ctx context.Context, userID string, p domain.Purpose, code string) error {
	f := fieldsFor(p)
	err := r.update(ctx, userID, nil, []string{f.TokenHash, f.Code, f.ExpiresAt},
		"#cc = :cc",
		map[string]interface{}{"#cc": f.Code, ":cc": code},
	)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("verification already consumed: %w", domain.ErrConflict)
	}
	return err
}

// update applies SET/REMOVE to an existing user. cond is ANDed with the
// existence check; condArgs maps "#name" placeholders to attribute names and
// ":value" placeholders to values.
func (r *UserRepo) update(ctx context.Context, userID string, set map[string]interface{}, remove []string, cond string, condArgs map[string]interface{}) error {
	fields := make(map[string]interface{}, len(set)+1)
	for k, v := range set {
		fields[k] = v
	}
	fields[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(fields, remove...)
	if err != nil {
		return err
	}

	condition := "attribute_exists(user_id)"
	if cond != "" {
		condition += " AND " + cond
		for k, v := range condArgs {
			if k[0] == '#' {
				ue.Names[k] = v.(string)
				continue
			}
			av, err := attributevalue.Marshal(v)
			if err != nil {
				return fmt.Errorf("marshal condition %s: %w", k, err)
			}
			ue.Values[k] = av
		}
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return err
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
