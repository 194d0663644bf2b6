// Formarter audits TRO motions against a compliance checklist.
//
// It evaluates each document against every checklist item, records a
// resumable audit session per document, scores the result and explains
// how to fix each failure.
//
// Usage:
//
//	# Audit one document from the library
//	formarter audit case-1/motion
//
//	# Audit a file that is not in the library
//	formarter audit --file motion.txt --ex-parte
//
//	# Audit every document in a collection
//	formarter batch case-1
//
//	# Show fix guidance for the failures of a session
//	formarter guidance --session audit-20250101-120000-abcd1234
//
//	# Serve the HTTP API
//	formarter serve --config formarter.yaml
package main

func main() {
	Execute()
}
