// Package services provides shared error classification and context plumbing
// for pipeline stages, plus subpackages wrapping the external collaborators
// (script, voice, pexels, youtube).
package services
