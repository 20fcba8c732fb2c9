package ddb

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestDynamoDBStreamRecord_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name               string
		jsonData           string
		expectedSeqNum     string
		expectedSizeBytes  int64
		expectedStreamType string
		hasKeys            bool
		hasNewImage        bool
		hasOldImage        bool
		wantErr            bool
	}{
		{
			name: "complete stream record with all fields",
			jsonData: `{
				"Keys": {
					"pk": {"S": "12"},
					"sk": {"S": "wiki_articles"}
				},
				"NewImage": {
					"pk": {"S": "12"},
					"sk": {"S": "wiki_articles"},
					"object": {
						"M": {
							"title": {"S": "Domestic cat"},
							"url": {"S": "https://en.wikipedia.org/wiki/Domestic_cat"},
							"quality_score": {"N": "3.5"}
						}
					}
				},
				"OldImage": {
					"pk": {"S": "12"},
					"sk": {"S": "wiki_articles"},
					"object": {
						"M": {
							"title": {"S": "Cat"},
							"url": {"S": "https://en.wikipedia.org/wiki/Cat"},
							"quality_score": {"N": "2"}
						}
					}
				},
				"SequenceNumber": "123456789",
				"SizeBytes": 1024,
				"StreamViewType": "NEW_AND_OLD_IMAGES"
			}`,
			expectedSeqNum:     "123456789",
			expectedSizeBytes:  1024,
			expectedStreamType: "NEW_AND_OLD_IMAGES",
			hasKeys:            true,
			hasNewImage:        true,
			hasOldImage:        true,
			wantErr:            false,
		},
		{
			name: "insert operation with only NewImage",
			jsonData: `{
				"Keys": {
					"pk": {"S": "34"},
					"sk": {"S": "wiki_articles"}
				},
				"NewImage": {
					"pk": {"S": "34"},
					"sk": {"S": "wiki_articles"},
					"object": {
						"M": {
							"title": {"S": "Dog"},
							"sentence_count": {"N": "12"},
							"has_content": {"BOOL": true}
						}
					}
				},
				"SequenceNumber": "987654321",
				"SizeBytes": 512,
				"StreamViewType": "NEW_AND_OLD_IMAGES"
			}`,
			expectedSeqNum:     "987654321",
			expectedSizeBytes:  512,
			expectedStreamType: "NEW_AND_OLD_IMAGES",
			hasKeys:            true,
			hasNewImage:        true,
			hasOldImage:        false,
			wantErr:            false,
		},
		{
			name: "remove operation with only OldImage",
			jsonData: `{
				"Keys": {
					"pk": {"S": "56"}
				},
				"OldImage": {
					"pk": {"S": "56"},
					"object": {
						"M": {
							"content_type": {"S": "article"}
						}
					}
				},
				"SequenceNumber": "555666777",
				"SizeBytes": 256,
				"StreamViewType": "OLD_IMAGE"
			}`,
			expectedSeqNum:     "555666777",
			expectedSizeBytes:  256,
			expectedStreamType: "OLD_IMAGE",
			hasKeys:            true,
			hasNewImage:        false,
			hasOldImage:        true,
			wantErr:            false,
		},
		{
			name: "minimal record with only required fields",
			jsonData: `{
				"SequenceNumber": "000111222",
				"SizeBytes": 100,
				"StreamViewType": "KEYS_ONLY"
			}`,
			expectedSeqNum:     "000111222",
			expectedSizeBytes:  100,
			expectedStreamType: "KEYS_ONLY",
			hasKeys:            false,
			hasNewImage:        false,
			hasOldImage:        false,
			wantErr:            false,
		},
		{
			name: "article with lists, sets and nested maps",
			jsonData: `{
				"Keys": {
					"pk": {"S": "78"}
				},
				"NewImage": {
					"pk": {"S": "78"},
					"object": {
						"M": {
							"keywords": {
								"L": [
									{"S": "wolf"},
									{"S": "pack"}
								]
							},
							"revision": {
								"M": {
									"minor": {"BOOL": true},
									"size": {"N": "30"},
									"tags": {"SS": ["mobile edit"]}
								}
							},
							"redirect": {"NULL": true},
							"raw": {"B": "d29sZg=="}
						}
					}
				},
				"SequenceNumber": "111222333",
				"SizeBytes": 2048,
				"StreamViewType": "NEW_IMAGE"
			}`,
			expectedSeqNum:     "111222333",
			expectedSizeBytes:  2048,
			expectedStreamType: "NEW_IMAGE",
			hasKeys:            true,
			hasNewImage:        true,
			hasOldImage:        false,
			wantErr:            false,
		},
		{
			name:     "invalid JSON should fail",
			jsonData: `{"invalid": json}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record DynamoDBStreamRecord
			err := json.Unmarshal([]byte(tt.jsonData), &record)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			// Verify basic fields
			if record.SequenceNumber != tt.expectedSeqNum {
				t.Errorf("SequenceNumber mismatch: got %s, want %s", record.SequenceNumber, tt.expectedSeqNum)
			}

			if record.SizeBytes != tt.expectedSizeBytes {
				t.Errorf("SizeBytes mismatch: got %d, want %d", record.SizeBytes, tt.expectedSizeBytes)
			}

			if record.StreamViewType != tt.expectedStreamType {
				t.Errorf("StreamViewType mismatch: got %s, want %s", record.StreamViewType, tt.expectedStreamType)
			}

			// Verify presence/absence of Keys, NewImage, OldImage
			if tt.hasKeys && record.Keys == nil {
				t.Error("Expected Keys to be present but got nil")
			}
			if !tt.hasKeys && record.Keys != nil {
				t.Error("Expected Keys to be nil but got data")
			}

			if tt.hasNewImage && record.NewImage == nil {
				t.Error("Expected NewImage to be present but got nil")
			}
			if !tt.hasNewImage && record.NewImage != nil {
				t.Error("Expected NewImage to be nil but got data")
			}

			if tt.hasOldImage && record.OldImage == nil {
				t.Error("Expected OldImage to be present but got nil")
			}
			if !tt.hasOldImage && record.OldImage != nil {
				t.Error("Expected OldImage to be nil but got data")
			}

			// Verify AttributeValue types are properly unmarshaled
			if tt.hasKeys {
				verifyAttributeValueMap(t, record.Keys, "Keys")
			}
			if tt.hasNewImage {
				verifyAttributeValueMap(t, record.NewImage, "NewImage")
			}
			if tt.hasOldImage {
				verifyAttributeValueMap(t, record.OldImage, "OldImage")
			}
		})
	}
}

func TestDynamoDBEventRecord_UnmarshalJSON(t *testing.T) {
	jsonData := `{
		"awsRegion": "us-east-1",
		"eventID": "test-event-123",
		"eventName": "INSERT",
		"eventSource": "aws:dynamodb",
		"eventVersion": "1.1",
		"eventSourceARN": "arn:aws:dynamodb:us-east-1:123456789:table/TestTable/stream/2023-01-01T00:00:00.000",
		"dynamodb": {
			"Keys": {
				"pk": {"S": "90"}
			},
			"NewImage": {
				"pk": {"S": "90"},
				"object": {
					"M": {
						"title": {"S": "Lion"}
					}
				}
			},
			"SequenceNumber": "123456789",
			"SizeBytes": 512,
			"StreamViewType": "NEW_AND_OLD_IMAGES"
		}
	}`

	var eventRecord DynamoDBEventRecord
	err := json.Unmarshal([]byte(jsonData), &eventRecord)
	if err != nil {
		t.Fatalf("Failed to unmarshal DynamoDBEventRecord: %v", err)
	}

	if eventRecord.AWSRegion != "us-east-1" {
		t.Errorf("AWSRegion mismatch: got %s, want us-east-1", eventRecord.AWSRegion)
	}

	if eventRecord.EventID != "test-event-123" {
		t.Errorf("EventID mismatch: got %s, want test-event-123", eventRecord.EventID)
	}

	if eventRecord.EventName != "INSERT" {
		t.Errorf("EventName mismatch: got %s, want INSERT", eventRecord.EventName)
	}

	if eventRecord.Change.SequenceNumber != "123456789" {
		t.Errorf("DynamoDB SequenceNumber mismatch: got %s, want 123456789", eventRecord.Change.SequenceNumber)
	}

	// Verify that the nested DynamoDB record was properly unmarshaled
	if eventRecord.Change.Keys == nil {
		t.Error("Expected Keys to be present")
	}

	if eventRecord.Change.NewImage == nil {
		t.Error("Expected NewImage to be present")
	}

	verifyAttributeValueMap(t, eventRecord.Change.Keys, "Keys")
	verifyAttributeValueMap(t, eventRecord.Change.NewImage, "NewImage")
}

func TestDynamoDBEvent_UnmarshalJSON(t *testing.T) {
	jsonData := `{
		"Records": [
			{
				"awsRegion": "us-east-1",
				"eventID": "event-1",
				"eventName": "INSERT",
				"eventSource": "aws:dynamodb",
				"eventVersion": "1.1",
				"eventSourceARN": "arn:aws:dynamodb:us-east-1:123456789:table/TestTable/stream/2023-01-01T00:00:00.000",
				"dynamodb": {
					"SequenceNumber": "111",
					"SizeBytes": 100,
					"StreamViewType": "NEW_IMAGE"
				}
			},
			{
				"awsRegion": "us-east-1",
				"eventID": "event-2",
				"eventName": "MODIFY",
				"eventSource": "aws:dynamodb",
				"eventVersion": "1.1",
				"eventSourceARN": "arn:aws:dynamodb:us-east-1:123456789:table/TestTable/stream/2023-01-01T00:00:00.000",
				"dynamodb": {
					"SequenceNumber": "222",
					"SizeBytes": 200,
					"StreamViewType": "NEW_AND_OLD_IMAGES"
				}
			}
		]
	}`

	var event DynamoDBEvent
	err := json.Unmarshal([]byte(jsonData), &event)
	if err != nil {
		t.Fatalf("Failed to unmarshal DynamoDBEvent: %v", err)
	}

	if len(event.Records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(event.Records))
	}

	if event.Records[0].EventName != "INSERT" {
		t.Errorf("First record EventName mismatch: got %s, want INSERT", event.Records[0].EventName)
	}

	if event.Records[1].EventName != "MODIFY" {
		t.Errorf("Second record EventName mismatch: got %s, want MODIFY", event.Records[1].EventName)
	}

	if event.Records[0].Change.SequenceNumber != "111" {
		t.Errorf("First record SequenceNumber mismatch: got %s, want 111", event.Records[0].Change.SequenceNumber)
	}

	if event.Records[1].Change.SequenceNumber != "222" {
		t.Errorf("Second record SequenceNumber mismatch: got %s, want 222", event.Records[1].Change.SequenceNumber)
	}
}

// verifyAttributeValueMap checks that an AttributeValue map contains proper types
func verifyAttributeValueMap(t *testing.T, m map[string]types.AttributeValue, fieldName string) {
	if m == nil {
		t.Errorf("%s should not be nil", fieldName)
		return
	}

	for key, value := range m {
		if value == nil {
			t.Errorf("%s[%s] should not be nil", fieldName, key)
			continue
		}

		// Verify that we have proper AttributeValue types
		switch v := value.(type) {
		case *types.AttributeValueMemberS:
			if v.Value == "" {
				t.Errorf("%s[%s] string value should not be empty", fieldName, key)
			}
		case *types.AttributeValueMemberN:
			if v.Value == "" {
				t.Errorf("%s[%s] number value should not be empty", fieldName, key)
			}
		case *types.AttributeValueMemberBOOL:
			// Boolean values are fine as-is
		case *types.AttributeValueMemberM:
			// Recursively verify nested maps
			verifyAttributeValueMap(t, v.Value, fieldName+"."+key)
		case *types.AttributeValueMemberNULL, *types.AttributeValueMemberB:
		case *types.AttributeValueMemberSS:
			if len(v.Value) == 0 {
				t.Errorf("%s[%s] set should not be empty", fieldName, key)
			}
		case *types.AttributeValueMemberL:
			if len(v.Value) == 0 {
				t.Errorf("%s[%s] list should not be empty", fieldName, key)
			}
		default:
			t.Errorf("%s[%s] has unexpected AttributeValue type: %T", fieldName, key, value)
		}
	}
}
