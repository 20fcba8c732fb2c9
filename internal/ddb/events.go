// Package ddb stages articles in a DynamoDB table and decodes the table's
// stream events.
package ddb

import (
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/wikisearch"
)

// DynamoDBEvent represents a DynamoDB stream event
type DynamoDBEvent struct {
	Records []DynamoDBEventRecord `json:"Records"`
}

// DynamoDBEventRecord represents a single DynamoDB stream record
type DynamoDBEventRecord struct {
	AWSRegion      string               `json:"awsRegion"`
	Change         DynamoDBStreamRecord `json:"dynamodb"`
	EventID        string               `json:"eventID"`
	EventName      string               `json:"eventName"`
	EventSource    string               `json:"eventSource"`
	EventVersion   string               `json:"eventVersion"`
	EventSourceArn string               `json:"eventSourceARN"`
}

// DynamoDBStreamRecord represents the DynamoDB stream data
type DynamoDBStreamRecord struct {
	ApproximateCreationDateTime int64                           `json:"ApproximateCreationDateTime,omitempty"`
	Keys                        map[string]types.AttributeValue `json:"Keys,omitempty"`
	NewImage                    map[string]types.AttributeValue `json:"NewImage,omitempty"`
	OldImage                    map[string]types.AttributeValue `json:"OldImage,omitempty"`
	SequenceNumber              string                          `json:"SequenceNumber"`
	SizeBytes                   int64                           `json:"SizeBytes"`
	StreamViewType              string                          `json:"StreamViewType"`
}

// UnmarshalJSON decodes the stream's DynamoDB JSON images into attribute
// values.
func (r *DynamoDBStreamRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ApproximateCreationDateTime int64           `json:"ApproximateCreationDateTime,omitempty"`
		Keys                        json.RawMessage `json:"Keys,omitempty"`
		NewImage                    json.RawMessage `json:"NewImage,omitempty"`
		OldImage                    json.RawMessage `json:"OldImage,omitempty"`
		SequenceNumber              string          `json:"SequenceNumber"`
		SizeBytes                   int64           `json:"SizeBytes"`
		StreamViewType              string          `json:"StreamViewType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := DynamoDBStreamRecord{
		ApproximateCreationDateTime: raw.ApproximateCreationDateTime,
		SequenceNumber:              raw.SequenceNumber,
		SizeBytes:                   raw.SizeBytes,
		StreamViewType:              raw.StreamViewType,
	}
	images := []struct {
		name string
		src  json.RawMessage
		dst  *map[string]types.AttributeValue
	}{
		{"Keys", raw.Keys, &out.Keys},
		{"NewImage", raw.NewImage, &out.NewImage},
		{"OldImage", raw.OldImage, &out.OldImage},
	}
	for _, img := range images {
		if len(img.src) == 0 || string(img.src) == "null" {
			continue
		}
		m, err := UnmarshalAttributeValueMap(img.src)
		if err != nil {
			return errors.Wrapf(err, "decode %s", img.name)
		}
		*img.dst = m
	}

	*r = out
	return nil
}

// UnmarshalAttributeValueMap decodes a DynamoDB JSON item such as
// {"pk": {"S": "x"}} into attribute values.
func UnmarshalAttributeValueMap(data []byte) (map[string]types.AttributeValue, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode attribute map")
	}
	out := make(map[string]types.AttributeValue, len(raw))
	for k, v := range raw {
		av, err := unmarshalAttributeValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", k)
		}
		out[k] = av
	}
	return out, nil
}

func unmarshalAttributeValue(data []byte) (types.AttributeValue, error) {
	var typed map[string]json.RawMessage
	if err := json.Unmarshal(data, &typed); err != nil {
		return nil, errors.Wrap(err, "decode attribute value")
	}
	if len(typed) != 1 {
		return nil, errors.Newf("attribute value must have exactly one type, got %d", len(typed))
	}

	for kind, v := range typed {
		switch kind {
		case "S":
			var s string
			err := json.Unmarshal(v, &s)
			return &types.AttributeValueMemberS{Value: s}, err
		case "N":
			var n string
			err := json.Unmarshal(v, &n)
			return &types.AttributeValueMemberN{Value: n}, err
		case "BOOL":
			var b bool
			err := json.Unmarshal(v, &b)
			return &types.AttributeValueMemberBOOL{Value: b}, err
		case "NULL":
			return &types.AttributeValueMemberNULL{Value: true}, nil
		case "B":
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, err
			}
			b, err := base64.StdEncoding.DecodeString(s)
			return &types.AttributeValueMemberB{Value: b}, err
		case "SS":
			var ss []string
			err := json.Unmarshal(v, &ss)
			return &types.AttributeValueMemberSS{Value: ss}, err
		case "NS":
			var ns []string
			err := json.Unmarshal(v, &ns)
			return &types.AttributeValueMemberNS{Value: ns}, err
		case "M":
			m, err := UnmarshalAttributeValueMap(v)
			return &types.AttributeValueMemberM{Value: m}, err
		case "L":
			var items []json.RawMessage
			if err := json.Unmarshal(v, &items); err != nil {
				return nil, err
			}
			list := make([]types.AttributeValue, 0, len(items))
			for i, item := range items {
				av, err := unmarshalAttributeValue(item)
				if err != nil {
					return nil, errors.Wrapf(err, "list item %d", i)
				}
				list = append(list, av)
			}
			return &types.AttributeValueMemberL{Value: list}, nil
		default:
			return nil, errors.Newf("unsupported attribute type %q", kind)
		}
	}
	return nil, nil
}

// DynamoDBOperationType represents the type of DynamoDB operation
type DynamoDBOperationType string

const (
	DynamoDBOperationTypeInsert DynamoDBOperationType = "INSERT"
	DynamoDBOperationTypeModify DynamoDBOperationType = "MODIFY"
	DynamoDBOperationTypeRemove DynamoDBOperationType = "REMOVE"
)

// Record is a staged article: the article ID, the search index it belongs to
// and the article's fields.
type Record struct {
	ID        string         `dynamodbav:"pk"`
	IndexName string         `dynamodbav:"sk"`
	Object    map[string]any `dynamodbav:"object"`
}

// UnmarshalRecord converts a stream image into a Record.
func UnmarshalRecord(image map[string]types.AttributeValue) (Record, error) {
	var record Record
	if err := attributevalue.UnmarshalMap(image, &record); err != nil {
		return Record{}, errors.Wrap(err, "unmarshal staged record")
	}
	return record, nil
}

// Article decodes the staged fields. The record's key wins over any id in
// the object.
func (r Record) Article() (wikisearch.Article, error) {
	a, err := wikisearch.ArticleFromFields(r.Object)
	if err != nil {
		return wikisearch.Article{}, errors.Wrapf(err, "decode staged article %s", r.ID)
	}
	a.ID = r.ID
	return a, nil
}
