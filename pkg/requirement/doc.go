// Package requirement parses dependency declaration lines and evaluates
// their environment predicates.
//
// A dependency line has the form
//
//	name[extra,...] (clauses) ; predicates
//
// where the parenthesized clause list is optional (bare "name>=1.0,<2" is also
// accepted) and the predicate part is a boolean expression over environment
// keys:
//
//	numpy (>=1.21.0) ; python_version >= "3.10"
//	pytest (>=6.0) ; extra == 'test'
//	colorama ; sys_platform == "win32" or platform_system == "Windows"
//
// Predicates are normalized into disjunctive form: a [Dependency] applies when
// any of its [PredicateGroup]s holds, and a group holds when all of its
// [Predicate]s hold. A comma between predicates at the top level separates
// groups, like "or". A dependency without predicates always applies.
//
// Evaluation never reads process state. Callers pass an explicit
// [Environment] describing the interpreter, platform and enabled extras.
package requirement
