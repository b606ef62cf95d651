/*
Package change implements the dirty-checking rules used by stores and subscriptions.

State trees are replaced rather than mutated, so most comparisons are a matter of
reference identity: a new pointer, map or slice header means "modified", the same
one means "untouched". Value-like kinds (numbers, strings, comparable structs)
compare by value.

Some sub-objects are intentionally mutable. Those embed Mutable and are stamped
with a tick from the owning store's Clock while a dispatch window is open. A
Detector treats a same-reference Marker as modified when its stamp falls inside
the window being inspected.

Windows are store-local and passed explicitly to WasModifiedIn, so concurrent
dispatches on different stores never observe each other's windows.
*/
package change
