// Package model loads the pre-trained classifier artifact and exposes it
// as a Handle.
//
// A Handle is either Loaded (wrapping a ports.Classifier) or Unloaded
// (carrying the reason the artifact could not be loaded). Load is called
// once at startup and never fails the process.
//
// Supported artifact formats:
//   - linear-softmax: multinomial logistic regression stored as JSON
package model
