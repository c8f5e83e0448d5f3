// SPDX-License-Identifier: MPL-2.0

// Package request holds the provisioning request: the single immutable record
// every workflow phase receives, and the pure merge that builds it from
// flags, interactive answers and configured defaults.
package request
