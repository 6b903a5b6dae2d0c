// Package textutil turns free text such as session titles into tokens that
// are safe to use in file names.
package textutil
