// Package domain holds the vocabulary shared by the wire layer, the
// validators and the public client: challenge descriptors, flow tokens,
// grant types and scope handling.
package domain
