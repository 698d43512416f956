// Package memory provides an in-memory knowledge base implementing the
// vector and text index ports with exact scans. It is used for tests and
// for small fixture sets loaded at startup.
package memory
