package kinesis

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/infrastructure/store"
)

// ConvertFromKinesisRecord converts a Kinesis record (DynamoDB Streams format)
// carrying an orders-table change into the placed order. Records other than
// INSERT yield nil, nil.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*order.Order, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	return ConvertFromDynamoDBStreamRecord(dynamoDBRecord)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB Stream record directly.
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*order.Order, error) {
	if record.EventName != "INSERT" {
		return nil, nil
	}
	return convertOrderImage(record.Change.NewImage)
}

func convertOrderImage(image map[string]events.DynamoDBAttributeValue) (*order.Order, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}

	item := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		av, err := toAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		item[k] = av
	}

	var stored store.DynamoOrder
	if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode order image: %w", err)
	}
	if stored.ID == "" || stored.OwnerID == "" {
		return nil, fmt.Errorf("missing required fields: id=%q, owner_id=%q", stored.ID, stored.OwnerID)
	}

	o := stored.Order()
	return &o, nil
}

// toAttributeValue maps the Lambda event representation onto the SDK one so
// the table's own decoding rules apply.
func toAttributeValue(v events.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}, nil
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}, nil
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}, nil
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}, nil
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}, nil
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}, nil
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}, nil
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, len(list))
		for i, elem := range list {
			av, err := toAttributeValue(elem)
			if err != nil {
				return nil, err
			}
			out[i] = av
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case events.DataTypeMap:
		m := v.Map()
		out := make(map[string]types.AttributeValue, len(m))
		for k, elem := range m {
			av, err := toAttributeValue(elem)
			if err != nil {
				return nil, err
			}
			out[k] = av
		}
		return &types.AttributeValueMemberM{Value: out}, nil
	}
	return nil, fmt.Errorf("unsupported attribute type %v", v.DataType())
}

// BatchConvertFromKinesisEvent converts all records from a Kinesis event.
// Returns successfully converted orders and any errors encountered.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*order.Order, []error) {
	var orders []*order.Order
	var errs []error

	for _, record := range kinesisEvent.Records {
		o, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if o != nil {
			orders = append(orders, o)
		}
	}

	return orders, errs
}
