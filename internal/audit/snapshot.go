package audit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fixora/tasktrail/internal/domain"
)

// TimeFormat is the canonical text form of temporal values in snapshots
const TimeFormat = time.RFC3339Nano

// TimePrecision matches what TIMESTAMPTZ stores; an in-memory value and
// the row read back must snapshot identically
const TimePrecision = time.Microsecond

var (
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// fieldInfo locates one snapshot field inside a struct type
type fieldInfo struct {
	name     string
	index    []int
	identity bool
	// relID is the index of the ID field inside a relation struct
	relID []int
}

// typeFields is the ordered field layout of a struct type
type typeFields struct {
	ordered []fieldInfo
	byName  map[string]int
}

var fieldCache sync.Map // map[reflect.Type]*typeFields

// fieldsOf returns the cached field layout of a struct type. Names come
// from the audit tag, then the json tag, then the Go field name; a "-"
// in either tag drops the field.
func fieldsOf(t reflect.Type) *typeFields {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(*typeFields)
	}

	idIndex := identityIndex(t)
	tf := &typeFields{byName: map[string]int{}}
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || (sf.Anonymous && indirect(sf.Type).Kind() == reflect.Struct) {
			continue
		}
		name, ok := fieldName(sf)
		if !ok {
			continue
		}
		if _, dup := tf.byName[name]; dup {
			continue
		}
		tf.byName[name] = len(tf.ordered)
		tf.ordered = append(tf.ordered, fieldInfo{
			name:     name,
			index:    sf.Index,
			identity: idIndex != nil && slices.Equal(sf.Index, idIndex),
			relID:    relationID(sf.Type),
		})
	}

	actual, _ := fieldCache.LoadOrStore(t, tf)
	return actual.(*typeFields)
}

func fieldName(sf reflect.StructField) (string, bool) {
	var name string
	if tag, ok := sf.Tag.Lookup("audit"); ok {
		name, _, _ = strings.Cut(tag, ",")
		if name == "-" {
			return "", false
		}
	}
	if name == "" {
		if tag, ok := sf.Tag.Lookup("json"); ok {
			jsonName, _, _ := strings.Cut(tag, ",")
			if jsonName == "-" {
				return "", false
			}
			name = jsonName
		}
	}
	if name == "" {
		name = sf.Name
	}
	return name, true
}

// identityIndex finds the identifier of a struct type: the field tagged
// audit:",id", else an integer field called ID
func identityIndex(t reflect.Type) []int {
	var byName []int
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		if tag, ok := sf.Tag.Lookup("audit"); ok {
			_, opts, _ := strings.Cut(tag, ",")
			if slices.Contains(strings.Split(opts, ","), "id") {
				return sf.Index
			}
		}
		if byName == nil && sf.Name == "ID" && isInteger(sf.Type) {
			byName = sf.Index
		}
	}
	return byName
}

// relationID returns the ID index of a related entity type, or nil when t
// is not a relation. Only struct types other than time.Time that carry an
// identifier count as relations.
func relationID(t reflect.Type) []int {
	t = indirect(t)
	if t.Kind() != reflect.Struct || t == timeType || t.Implements(valuerType) || reflect.PointerTo(t).Implements(valuerType) {
		return nil
	}
	return identityIndex(t)
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// structValue dereferences instance down to a struct value
func structValue(instance interface{}) (reflect.Value, bool) {
	v := reflect.ValueOf(instance)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.Kind() == reflect.Struct
}

// Snapshot renders instance as a flat field map holding exactly fieldNames.
// Unknown or nil fields map to nil. Relations are reduced to their ID and
// all values are normalized so two snapshots compare with deep equality.
func Snapshot(fieldNames []string, instance interface{}) domain.Snapshot {
	snap := make(domain.Snapshot, len(fieldNames))
	v, ok := structValue(instance)
	if !ok {
		for _, name := range fieldNames {
			snap[name] = nil
		}
		return snap
	}

	tf := fieldsOf(v.Type())
	for _, name := range fieldNames {
		pos, ok := tf.byName[name]
		if !ok {
			snap[name] = nil
			continue
		}
		fi := tf.ordered[pos]
		fv, err := v.FieldByIndexErr(fi.index)
		if err != nil {
			snap[name] = nil
			continue
		}
		if fi.relID != nil {
			snap[name] = relationValue(fv, fi.relID)
			continue
		}
		snap[name] = normalize(fv)
	}
	return snap
}

func relationValue(v reflect.Value, idIndex []int) interface{} {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	id, err := v.FieldByIndexErr(idIndex)
	if err != nil {
		return nil
	}
	return normalize(id)
}

// normalize converts a field value into its canonical comparable form
func normalize(v reflect.Value) interface{} {
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.CanInterface() {
		return nil
	}

	if v.Type() == timeType {
		return v.Interface().(time.Time).UTC().Round(TimePrecision).Format(TimeFormat)
	}
	if v.Type().Implements(valuerType) {
		val, err := v.Interface().(driver.Valuer).Value()
		if err != nil {
			return fmt.Sprint(v.Interface())
		}
		return normalize(reflect.ValueOf(val))
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.String:
		return v.String()
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
	}
	return jsonNormal(v.Interface())
}

// jsonNormal reduces composite values to map[string]interface{} / []interface{} / float64
// so that structurally equal values are reflect.DeepEqual
func jsonNormal(value interface{}) interface{} {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw)
	}
	return out
}
