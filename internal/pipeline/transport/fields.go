package transport

import (
	"fmt"
	"strconv"
	"time"

	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/platform/apperr"
)

// ToDomainFields decodes the tagged field bag. A null value decodes to the
// empty value of its variant so required-field checks report it missing.
func ToDomainFields(in map[string]FieldInput) (map[string]domain.FieldValue, error) {
	out := make(map[string]domain.FieldValue, len(in))
	for name, f := range in {
		v, err := decodeField(f)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("field %q: %s", name, err.Error())).WithCode(domain.CodeValidationFailed)
		}
		out[name] = v
	}
	return out, nil
}

func decodeField(f FieldInput) (domain.FieldValue, error) {
	switch domain.FieldKind(f.Type) {
	case domain.FieldText:
		s, err := asString(f.Value)
		return domain.TextValue{Value: s}, err
	case domain.FieldSelect:
		s, err := asString(f.Value)
		if err != nil {
			return nil, err
		}
		v := domain.SelectValue{Value: s, Options: f.Options}
		if s != "" && !v.ValidOption() {
			return nil, fmt.Errorf("%q is not one of the options", s)
		}
		return v, nil
	case domain.FieldNumber:
		switch n := f.Value.(type) {
		case nil:
			return nil, nil
		case float64:
			return domain.NumberValue{Value: n}, nil
		case string:
			parsed, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, fmt.Errorf("expected a number")
			}
			return domain.NumberValue{Value: parsed}, nil
		default:
			return nil, fmt.Errorf("expected a number")
		}
	case domain.FieldDate:
		s, err := asString(f.Value)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return domain.DateValue{}, nil
		}
		for _, layout := range []string{time.RFC3339, time.DateOnly} {
			if t, err := time.Parse(layout, s); err == nil {
				return domain.DateValue{Value: t}, nil
			}
		}
		return nil, fmt.Errorf("expected an RFC 3339 timestamp or YYYY-MM-DD date")
	case domain.FieldBoolean:
		switch b := f.Value.(type) {
		case nil:
			return nil, nil
		case bool:
			return domain.BooleanValue{Value: b}, nil
		default:
			return nil, fmt.Errorf("expected a boolean")
		}
	}
	return nil, fmt.Errorf("unknown field type %q", f.Type)
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", fmt.Errorf("expected a string")
	}
}
