// Package contractreview is the composition root of the contract review
// backend.
//
// It wires a rule source (an XLSX, CSV, YAML or JSON table on disk by
// default) into a cached rule store, and exposes clause matching, review
// payload validation and Word comment annotation through a single service.
//
// Features:
//
//   - **Rule Store**: Rules are loaded lazily, cached, reloaded on demand or
//     when the rule file changes.
//   - **Matcher**: Keyword and regex matching scoped by contract type.
//   - **Payload Validation**: Review issues are checked against a JSON schema
//     before they touch a document.
//   - **Annotation**: Issues become native Word comments anchored to the
//     clause bookmark or, failing that, the clause heading.
//
// Usage:
//
//	svc, err := contractreview.New(
//		contractreview.WithRulesPath("rules.xlsx"),
//		contractreview.WithLogger(logger),
//	)
//
//	res, err := svc.AnnotatePayload(ctx, docBytes, payloadJSON)
package contractreview
