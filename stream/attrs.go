package stream

import (
	"strconv"

	"github.com/aws/aws-lambda-go/events"
)

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts an integer attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}

// getStringListAttr extracts the strings of a list or string set attribute.
func getStringListAttr(image map[string]events.DynamoDBAttributeValue, key string) []string {
	v, ok := image[key]
	if !ok {
		return nil
	}
	switch v.DataType() {
	case events.DataTypeStringSet:
		return v.StringSet()
	case events.DataTypeList:
		var result []string
		for _, item := range v.List() {
			if item.DataType() == events.DataTypeString {
				result = append(result, item.String())
			}
		}
		return result
	}
	return nil
}

// attrs names the attributes whose change matters to a table's subscribers.
type attrs struct {
	strings []string
	numbers []string
	lists   []string
}

// changed reports whether any tracked attribute differs between the images.
func (a attrs) changed(before, after map[string]events.DynamoDBAttributeValue) bool {
	for _, key := range a.strings {
		if getStringAttr(before, key) != getStringAttr(after, key) {
			return true
		}
	}
	for _, key := range a.numbers {
		if getNumberAttr(before, key) != getNumberAttr(after, key) {
			return true
		}
	}
	for _, key := range a.lists {
		if !sameSet(getStringListAttr(before, key), getStringListAttr(after, key)) {
			return true
		}
	}
	return false
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		if seen[v] == 0 {
			return false
		}
		seen[v]--
	}
	return true
}
