// Package queue persists render runs in SQLite and tracks their progress
// through the scripting, voicing, gathering, composition, and publishing
// stages.
package queue
