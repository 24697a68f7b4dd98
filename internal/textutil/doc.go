// Package textutil normalizes and validates the names that end up both on
// disk and inside package metadata.
//
// Package and asset names are NFC-normalized so the path recorded in the
// asset map matches the bytes the filesystem stores. SanitizeToken derives
// safe tokens for auxiliary files such as build locks.
package textutil
