// Package files finds sales datasets on disk and checks output directories.
package files
