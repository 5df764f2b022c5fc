package service

import (
	"edu_network_backend/internal/model"
	"edu_network_backend/internal/util"
	"encoding/json"
	"fmt"
)

// ContentValidator 按内容类型校验 payload 结构，由调用方注入
type ContentValidator interface {
	Validate(contentType string, payload []byte) error
}

type SchemaRule func(doc map[string]json.RawMessage) error

// SchemaValidator 默认实现：payload 必须是 JSON 对象，再按类型套用规则
type SchemaValidator struct {
	rules map[string]SchemaRule
}

func NewSchemaValidator() *SchemaValidator {
	v := &SchemaValidator{rules: make(map[string]SchemaRule)}
	v.Register(model.ContentTypeCourse, requireArray("lessons", false))
	v.Register(model.ContentTypeLesson, requireAnyField("body", "sections"))
	v.Register(model.ContentTypeAssessment, requireArray("questions", true))
	return v
}

func (v *SchemaValidator) Register(contentType string, rule SchemaRule) {
	v.rules[contentType] = rule
}

func (v *SchemaValidator) Validate(contentType string, payload []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil || doc == nil {
		return fmt.Errorf("%w: payload must be a JSON object", util.ErrSchemaValidationFailed)
	}
	rule, ok := v.rules[contentType]
	if !ok {
		return nil
	}
	if err := rule(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", util.ErrSchemaValidationFailed, contentType, err)
	}
	return nil
}

func requireArray(field string, nonEmpty bool) SchemaRule {
	return func(doc map[string]json.RawMessage) error {
		raw, ok := doc[field]
		if !ok {
			return fmt.Errorf("missing %q", field)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("%q must be an array", field)
		}
		if nonEmpty && len(items) == 0 {
			return fmt.Errorf("%q must not be empty", field)
		}
		return nil
	}
}

func requireAnyField(fields ...string) SchemaRule {
	return func(doc map[string]json.RawMessage) error {
		for _, f := range fields {
			if raw, ok := doc[f]; ok && string(raw) != "null" {
				return nil
			}
		}
		return fmt.Errorf("one of %v is required", fields)
	}
}
