// Package pexels fetches portrait stock footage for scene visuals, two
// clips per scene, with keyword simplification and on-disk caching.
package pexels
