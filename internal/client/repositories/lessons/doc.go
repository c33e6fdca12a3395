// Package lessons persists the local mirror of the remote "lezione" collection.
package lessons
