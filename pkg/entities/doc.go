// Package entities defines the records that flow through entity resolution:
// raw observations produced by the extraction service, the tagged attribute
// values they carry, and the canonical entities they are merged into.
//
// Values are a closed tagged variant (String, Number, List). Merge code
// switches on Value.Kind exhaustively rather than inspecting dynamic types:
//
//	v := entities.Number(1968)
//	switch v.Kind() {
//	case entities.KindNumber:
//	    year := v.Num()
//	case entities.KindString, entities.KindList:
//	    ...
//	}
//
// Attributes keep insertion order so that "first seen" is well defined when
// an observation carries several candidate fields.
package entities
