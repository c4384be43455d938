// Package sanitizer normalizes caller-supplied text before validation
// and storage. It never rejects input; rejection is the validator's job.
package sanitizer
