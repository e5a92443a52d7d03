package utils

import (
	"fmt"
	"reflect"
	"strings"
)

// UpdatesFromPtrDTO returns the column updates of a partial-update DTO: one
// entry per non-nil pointer field, keyed by its json name. renames maps a json
// name to a column name; renaming to "-" leaves the field out.
func UpdatesFromPtrDTO(dto any, renames map[string]string) map[string]any {
	updates := make(map[string]any)
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return updates
	}
	s := v.Elem()
	for _, sf := range reflect.VisibleFields(s.Type()) {
		if !sf.IsExported() {
			continue
		}
		fv := s.FieldByIndex(sf.Index)
		if fv.Kind() != reflect.Ptr || fv.IsNil() {
			continue
		}
		column := jsonName(sf)
		if alt := renames[column]; alt != "" {
			column = alt
		}
		if column == "" || column == "-" {
			continue
		}
		updates[column] = fv.Elem().Interface()
	}
	return updates
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	return name
}

// SequenceNumber formats n with a prefix and zero padding, e.g. ("A", 7, 3) -> "A007".
func SequenceNumber(prefix string, n, width int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}
