/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package stringutil

import (
	"crypto/rand"
	"encoding/binary"
	"strings"
)

const slugAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomSlug returns a URL-safe identifier of the given length.
func RandomSlug(length int) string {
	slug := strings.Builder{}
	for i := 0; i < length; i++ {
		slug.WriteByte(slugAlphabet[randUint32()%uint32(len(slugAlphabet))])
	}
	return slug.String()
}

func randUint32() uint32 {
	var k uint32
	if err := binary.Read(rand.Reader, binary.LittleEndian, &k); err != nil {
		return 0
	}
	return k
}

// TrimLeadingSlashes normalizes a folder path so that storage keys never start
// with a separator.
func TrimLeadingSlashes(path string) string {
	return strings.TrimLeft(path, "/")
}

// EnsureTrailingSlash normalizes endpoint URLs to the trailing-slash form.
func EnsureTrailingSlash(url string) string {
	if url == "" || strings.HasSuffix(url, "/") {
		return url
	}
	return url + "/"
}
