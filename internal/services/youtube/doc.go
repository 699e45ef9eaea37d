// Package youtube publishes finished videos through the resumable upload
// API with refresh-token authentication.
package youtube
