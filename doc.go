// Package auth implements the account authentication and credential
// lifecycle subsystem for a web service: multi strategy login, signed
// token issuance with silent renewal, email verification, password
// reset, email change confirmation, api key rotation, and feature
// gating.
//
// The package is transport agnostic. Request handling goes through
// goliatone/go-router contexts, persistence through a bun backed
// repository, and outbound concerns (mail, cache invalidation,
// localized messages) through narrow collaborator interfaces so hosts
// can swap implementations.
package auth
