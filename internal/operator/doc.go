// Package operator recognizes operator calls.
//
// Every call into the kernel is a (path, expression) pair. Recognize tests
// it against an ordered list of typed matchers and returns exactly one Call
// variant:
//
//	define -> eval -> query -> remove -> secret -> noise -> pointer -> identity -> plain write
//
// All operators attach to the leaf label of the path and are looked up in
// a per-kernel Registry, so custom tokens added with "+" participate in
// recognition exactly like the defaults. The first matcher whose leaf kind
// and expression shape both fit wins; a call nothing matches is a plain
// write.
package operator
