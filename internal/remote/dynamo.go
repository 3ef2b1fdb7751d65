// Package remote writes chat messages to the authoritative document store,
// a DynamoDB table holding one item per message under a per-user, per-space
// partition.
package remote

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// API is the subset of the DynamoDB client used here.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// messageItem is one message document.
type messageItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
	SpaceID    string `dynamodbav:"SpaceID"`
	MessageID  string `dynamodbav:"MessageID"`
	Content    string `dynamodbav:"Content"`
	IsAI       bool   `dynamodbav:"IsAI"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

const entityMessage = "MESSAGE"

// createdLayout is fixed-width so sort keys order the same way as time.
const createdLayout = "2006-01-02T15:04:05.000000000Z"

func partitionKey(userID, spaceID string) string {
	return fmt.Sprintf("USER#%s#SPACE#%s", userID, spaceID)
}

// Message is a message as stored remotely.
type Message struct {
	ID        string
	UserID    string
	SpaceID   string
	Content   string
	IsAI      bool
	CreatedAt time.Time
}

// Dynamo stores messages in a single DynamoDB table.
type Dynamo struct {
	client API
	table  string
	now    func() time.Time
	newID  func() string
}

// NewDynamo creates a Dynamo store over an existing client.
func NewDynamo(client API, table string) *Dynamo {
	return &Dynamo{client: client, table: table, now: time.Now, newID: uuid.NewString}
}

// Options configure the DynamoDB client built by Connect.
type Options struct {
	Table  string
	Region string
	// Endpoint overrides the service endpoint, e.g. http://localhost:8000 for DynamoDB Local.
	Endpoint string
}

// Connect loads AWS configuration from the environment and returns a Dynamo store.
func Connect(ctx context.Context, opts Options) (*Dynamo, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewDynamo(client, opts.Table), nil
}

// AppendMessage writes one message document, stamped with the adapter's
// current time. The sort key orders a space's messages by creation time.
func (d *Dynamo) AppendMessage(ctx context.Context, userID, spaceID, text string, isAI bool) error {
	created := d.now().UTC().Format(createdLayout)
	id := d.newID()
	item := messageItem{
		PK:         partitionKey(userID, spaceID),
		SK:         fmt.Sprintf("MSG#%s#%s", created, id),
		EntityType: entityMessage,
		UserID:     userID,
		SpaceID:    spaceID,
		MessageID:  id,
		Content:    text,
		IsAI:       isAI,
		CreatedAt:  created,
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting message in %s: %w", d.table, err)
	}
	return nil
}

// Messages returns every remote message of a space ordered by creation time.
func (d *Dynamo) Messages(ctx context.Context, userID, spaceID string) ([]Message, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :msg)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":  &types.AttributeValueMemberS{Value: partitionKey(userID, spaceID)},
			":msg": &types.AttributeValueMemberS{Value: "MSG#"},
		},
	}

	var items []messageItem
	for {
		out, err := d.client.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("querying messages: %w", err)
		}
		var page []messageItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshalling messages: %w", err)
		}
		items = append(items, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	msgs := make([]Message, 0, len(items))
	for _, it := range items {
		created, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("message %s: parsing CreatedAt: %w", it.MessageID, err)
		}
		msgs = append(msgs, Message{
			ID:        it.MessageID,
			UserID:    it.UserID,
			SpaceID:   it.SpaceID,
			Content:   it.Content,
			IsAI:      it.IsAI,
			CreatedAt: created,
		})
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

// Discard accepts every write and stores nothing. It is the remote store
// when no table is configured, so the client runs local-only.
type Discard struct{}

func (Discard) AppendMessage(context.Context, string, string, string, bool) error { return nil }
