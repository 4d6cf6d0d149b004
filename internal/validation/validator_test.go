// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

type regionQuery struct {
	Level   string `validate:"omitempty,classification"`
	Country string `validate:"omitempty,countrycode"`
}

func TestValidateStruct_CustomTags(t *testing.T) {
	valid := []regionQuery{
		{},
		{Level: "lau"},
		{Level: "0"},
		{Level: "nuts3"},
		{Country: "X"},
		{Country: "de"},
		{Level: "2", Country: "FRA"},
	}
	for _, q := range valid {
		if err := ValidateStruct(&q); err != nil {
			t.Errorf("ValidateStruct(%+v) = %v, want nil", q, err)
		}
	}

	tests := []struct {
		name    string
		input   regionQuery
		wantTag string
	}{
		{"level out of range", regionQuery{Level: "4"}, "classification"},
		{"level word", regionQuery{Level: "county"}, "classification"},
		{"country too long", regionQuery{Country: "DEUT"}, "countrycode"},
		{"country with digit", regionQuery{Country: "X1"}, "countrycode"},
		{"country non ascii", regionQuery{Country: "ÄB"}, "countrycode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1", len(errs))
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
		})
	}
}

type nested struct {
	Server struct {
		Port int    `validate:"gte=1,lte=65535"`
		URL  string `validate:"omitempty,url"`
	}
	Mode string `validate:"oneof=json console"`
}

func TestValidateStruct_MessagesAndNamespace(t *testing.T) {
	var n nested
	n.Server.Port = 0
	n.Server.URL = "not a url"
	n.Mode = "xml"

	err := ValidateStruct(&n)
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	if got := len(err.Errors()); got != 3 {
		t.Fatalf("got %d errors, want 3", got)
	}

	byField := map[string]ValidationError{}
	for _, e := range err.Errors() {
		byField[e.Field()] = e
	}

	port := byField["Port"]
	if port.Namespace() != "nested.Server.Port" {
		t.Errorf("Namespace() = %q", port.Namespace())
	}
	if port.Param() != "1" || port.Value() != 0 {
		t.Errorf("Param() = %q, Value() = %v", port.Param(), port.Value())
	}
	if port.Error() != "Port must be greater than or equal to 1" {
		t.Errorf("Port message = %q", port.Error())
	}
	urlErr := byField["URL"]
	if urlErr.Error() != "URL must be a valid URL" {
		t.Errorf("URL message = %q", urlErr.Error())
	}
	modeErr := byField["Mode"]
	if modeErr.Error() != "Mode must be one of: json console" {
		t.Errorf("Mode message = %q", modeErr.Error())
	}

	details := err.Details()
	if details["Mode"] == "" || len(details) != 3 {
		t.Errorf("Details() = %v", details)
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("Error() should join messages: %q", err.Error())
	}
}

func TestTranslateMinMax(t *testing.T) {
	type lengths struct {
		Name  string `validate:"min=2,max=4"`
		Count int    `validate:"max=3"`
	}

	err := ValidateStruct(&lengths{Name: "a", Count: 9})
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	details := err.Details()
	if details["Name"] != "Name must be at least 2 characters" {
		t.Errorf("Name message = %q", details["Name"])
	}
	if details["Count"] != "Count must be at most 3" {
		t.Errorf("Count message = %q", details["Count"])
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	var ve RequestValidationError
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q", ve.Error())
	}
}
