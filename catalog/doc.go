// Package catalog stores the list of models the web app offers.
//
// The list lives in a JSON file of objects with provider, model and display
// keys. Any other keys are kept as metadata. The (provider, model) pair is the
// key, and the admin API edits the file through [FileStore].
package catalog
