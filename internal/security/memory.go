// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package security

// SecureWipe overwrites a byte slice with zeros.
//
// Limitations: Go's garbage collector may move or copy memory at any
// time, and string conversions create immutable copies that cannot be
// zeroed. Wiping the working buffer reduces the window in which an
// unmasked case number sits in memory, but cannot guarantee that no
// copies exist elsewhere in the heap. Do not rely on this for
// cryptographic-strength memory protection.
func SecureWipe(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
