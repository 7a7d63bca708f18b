// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package avrocodec

import (
	"fmt"

	"github.com/clusterwatch/sentryd/internal/persistence"
)

// SaveDoc encodes v with c and stores it under key via s, the Avro
// counterpart of persistence.SaveDoc.
func SaveDoc(s persistence.Store, c *Codec, key string, v any) error {
	b, err := c.Marshal(v)
	if err != nil {
		return fmt.Errorf("avrocodec: marshaling %s: %w", key, err)
	}
	return s.StoreJSON(key, b)
}

// LoadDoc loads key from s and decodes it into v with c, the Avro
// counterpart of persistence.LoadDoc. ok is false, err is nil when the key
// does not exist.
func LoadDoc(s persistence.Store, c *Codec, key string, v any) (ok bool, err error) {
	doc, found, err := s.LoadJSON(key)
	if err != nil {
		return false, fmt.Errorf("avrocodec: loading %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := c.Unmarshal(doc, v); err != nil {
		return false, fmt.Errorf("avrocodec: decoding %s: %w", key, err)
	}
	return true, nil
}
