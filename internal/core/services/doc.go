// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Retrieval runs a vector and a text channel concurrently and fuses them
// with Reciprocal Rank Fusion. Answers stream model output through the
// response package's filter and post-processing pipeline, turning inline
// citations into catalog deep links.
package services
