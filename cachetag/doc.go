// Package cachetag builds the tags cached reads are registered under and
// mutations invalidate.
//
// A tag is a cache key class (UserKey or OrganizationKey) bound to the
// identifiers that scope it:
//
//	cachetag.User(cachetag.Profile, userID)
//	cachetag.Organization(cachetag.Favorites, orgID, userID)
//	cachetag.Organization(cachetag.ContactNotes, orgID, contactID)
//
// Tags are values; their string form is derived, never assembled by hand:
//
//	user:<userID>:profile
//	organization:<orgID>:favorites:<userID>
//
// Identifiers are escaped so two tags encode to the same string only when they
// have the same scope, key and identifiers in the same order.
package cachetag
