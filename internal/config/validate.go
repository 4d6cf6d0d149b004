// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/trailatlas/internal/validation"
)

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		errs := verr.Errors()
		msgs := make([]string, 0, len(errs))
		for i := range errs {
			msgs = append(msgs, fmt.Sprintf("%s: %s (value %v)", errs[i].Namespace(), errs[i].Error(), errs[i].Value()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	if c.Credentials.SecretKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.Credentials.SecretKey)
		if err != nil || len(key) != 32 {
			return errors.New("credentials.secret_key must be a base64 encoded 32 byte key")
		}
	}

	if (c.Strava.ClientID == "") != (c.Strava.ClientSecret == "") {
		return errors.New("strava.client_id and strava.client_secret must be set together")
	}

	return nil
}
