/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package storageconfig

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/stashbin/stashbin/pkg/drivers"
	commonerrors "github.com/stashbin/stashbin/pkg/errors"
	"github.com/stashbin/stashbin/pkg/utils/stringutil"
)

// maskPattern recognizes values a client echoed back from a masked view.
// Such values are rejected on create and silently dropped on update.
var maskPattern = regexp.MustCompile(`^\*{3,}.+$`)

func isMaskedValue(v interface{}) bool {
	s, ok := v.(string)
	return ok && maskPattern.MatchString(s)
}

// maskSecret renders a stored secret for display. The output always matches
// maskPattern so an echoed-back value is recognized as masked.
func maskSecret(plain string) string {
	if len(plain) >= 8 {
		return "*****" + plain[len(plain)-4:]
	}
	return "********"
}

func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// validateCreate checks the submitted bag against the driver schema. Masked
// values are an error here: there is no stored ciphertext to fall back to.
func validateCreate(schema *drivers.ConfigSchema, cfg map[string]interface{}) error {
	for i := range schema.Fields {
		field := &schema.Fields[i]
		value, present := cfg[field.Name]
		if present && field.Kind == drivers.KindSecret && isMaskedValue(value) {
			return commonerrors.NewBadRequest(
				fmt.Sprintf("field %s looks masked; submit the real value", field.Name))
		}
		if requiredNow(field, cfg, true) && (!present || isEmptyValue(value)) {
			return commonerrors.NewBadRequest(fmt.Sprintf("field %s is required", field.Name))
		}
	}
	return validateValues(schema, cfg)
}

// validateUpdate checks only what the patch touches. Required fields may be
// absent because the stored value remains in effect.
func validateUpdate(schema *drivers.ConfigSchema, cfg map[string]interface{}) error {
	return validateValues(schema, cfg)
}

func requiredNow(field *drivers.Field, cfg map[string]interface{}, creating bool) bool {
	if creating && field.RequiredOnCreate {
		return true
	}
	if !field.Required {
		return false
	}
	if field.RequiredWhen != nil {
		return field.RequiredWhen.Matches(cfg)
	}
	return true
}

func validateValues(schema *drivers.ConfigSchema, cfg map[string]interface{}) error {
	for i := range schema.Fields {
		field := &schema.Fields[i]
		value, present := cfg[field.Name]
		if !present || isEmptyValue(value) {
			continue
		}
		if field.Validation == nil {
			continue
		}
		s, _ := value.(string)
		switch field.Validation.Rule {
		case drivers.RuleURL:
			if err := validateHttpUrl(field.Name, s); err != nil {
				return err
			}
		case drivers.RuleAbsPath:
			if !strings.HasPrefix(s, "/") {
				return commonerrors.NewBadRequest(
					fmt.Sprintf("field %s must be an absolute path", field.Name))
			}
		}
		if len(field.EnumValues) > 0 && !containsString(field.EnumValues, s) {
			return commonerrors.NewBadRequest(
				fmt.Sprintf("field %s must be one of %v", field.Name, field.EnumValues))
		}
	}
	return nil
}

func validateHttpUrl(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return commonerrors.NewBadRequest(
			fmt.Sprintf("field %s must be an http or https URL", name))
	}
	return nil
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// normalizeForStore rewrites the bag into its wire form: endpoint URLs get a
// trailing slash, folders lose leading slashes, schema booleans become 0/1.
func normalizeForStore(schema *drivers.ConfigSchema, cfg map[string]interface{}) {
	if v, ok := cfg["endpoint_url"].(string); ok && v != "" {
		cfg["endpoint_url"] = stringutil.EnsureTrailingSlash(v)
	}
	if v, ok := cfg["default_folder"].(string); ok {
		cfg["default_folder"] = stringutil.TrimLeadingSlashes(v)
	}
	for i := range schema.Fields {
		field := &schema.Fields[i]
		if field.Kind != drivers.KindBoolean {
			continue
		}
		if value, ok := cfg[field.Name]; ok {
			if truthyWire(value) {
				cfg[field.Name] = 1
			} else {
				cfg[field.Name] = 0
			}
		}
	}
}

// normalizeForRead turns stored 0/1 (or "0"/"1") booleans back into bools.
func normalizeForRead(schema *drivers.ConfigSchema, cfg map[string]interface{}) {
	for i := range schema.Fields {
		field := &schema.Fields[i]
		if field.Kind != drivers.KindBoolean {
			continue
		}
		if value, ok := cfg[field.Name]; ok {
			cfg[field.Name] = truthyWire(value)
		}
	}
}

func truthyWire(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != "" && val != "0" && val != "false"
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	}
	return false
}
