package repository

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"studyzone/internal/models"
)

// decode copies a Firestore document body into out. Documents written by older clients store some
// numbers as strings and dates as ISO strings, so decoding is weakly typed.
func decode(data map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToTimeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(data)
}

// stringToTimeHook leaves empty strings as the zero time.
func stringToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf(time.Time{}) && data.(string) == "" {
		return time.Time{}, nil
	}
	return data, nil
}

func decodeCourse(id string, data map[string]interface{}) (*models.Course, error) {
	var c models.Course
	if err := decode(data, &c); err != nil {
		return nil, fmt.Errorf("error decoding course %s: %v", id, err)
	}
	// The document ID is the key every later read and write uses.
	c.Code = id
	c.Normalize()
	return &c, nil
}

func decodeUser(id string, data map[string]interface{}) (*models.UserRecord, error) {
	var u models.UserRecord
	if err := decode(data, &u); err != nil {
		return nil, fmt.Errorf("error decoding user %s: %v", id, err)
	}
	if u.Email == "" {
		u.Email = id
	}
	return &u, nil
}
