// Package html turns HTML uploads into plain text: script, style and head
// content is dropped, block elements become line breaks and entities are
// decoded.
package html
