package types

// Datum identifies one logical slice within a resource's data, such as a
// frame index. Many datums may reference one resource.
type Datum struct {
	DatumID     string `json:"datum_id"`
	Resource    string `json:"resource"`
	DatumKwargs Kwargs `json:"datum_kwargs"`
}

// Clone returns a copy of d whose kwargs share no state with d.
func (d Datum) Clone() Datum {
	d.DatumKwargs = d.DatumKwargs.Clone()
	return d
}
