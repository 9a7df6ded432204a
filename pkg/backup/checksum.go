/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package backup

import (
	"crypto/sha256"
	"encoding/hex"

	jsonutil "github.com/stashbin/stashbin/pkg/utils/json"
)

const checksumHexLen = 16

// ComputeChecksum digests the data section as canonical JSON (recursively
// key-sorted) and keeps the first 16 hex characters. Reordering keys leaves
// the digest unchanged; any value change does not.
func ComputeChecksum(data map[string][]map[string]interface{}) (string, error) {
	canonical, err := jsonutil.MarshalCanonical(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:checksumHexLen], nil
}
