// Package decl holds the two declaration layers the checker works with.
//
// Shallow declarations describe what a single class body says about itself,
// member types included. Folded declarations describe the full member set of a
// class after inheritance has been flattened: which members exist and which
// class defines each one (its origin), but not their types. Types stay on the
// shallow layer and are fetched on demand, so a folded class never duplicates
// the types of everything it inherits.
//
// Both layers are immutable once built and are shared by pointer.
package decl
