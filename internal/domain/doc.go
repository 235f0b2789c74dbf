// Package domain defines core data models, contracts and sentinel errors shared
// across woosh. It contains plain types (wire/state) and interfaces only.
package domain
