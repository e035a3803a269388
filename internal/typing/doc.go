// Package typing exposes fully typed views of folded classes.
//
// A folded class knows which members a class has and where each one is
// defined, but not their types: those live with the shallow declaration of
// the defining class so that a whole hierarchy does not store, and fetch,
// the types of every inherited member again and again. A ClassType bridges
// the two layers. Asked for a member, it checks its cache; on a miss it finds
// the member in the folded class, asks the provider for the member's type at
// its origin, and caches a ClassElt combining both.
//
// Every member a folded class lists must be resolvable by the provider that
// folded it. When a provider answers "unknown" for such a member the two
// declaration layers have diverged; ClassType panics with *MemberTypeMissing
// instead of returning an error, since no caller can repair that.
package typing
