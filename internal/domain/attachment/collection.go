package attachment

// Remove returns list without the attachment identified by id.
func Remove(list []Attachment, id string) ([]Attachment, Attachment, error) {
	out := make([]Attachment, 0, len(list))
	var removed Attachment
	found := false
	for _, a := range list {
		if a.ID == id && !found {
			removed = a
			found = true
			continue
		}
		out = append(out, a)
	}
	if !found {
		return Clone(list), Attachment{}, ErrAttachmentNotFound
	}
	return out, removed, nil
}

// Refs returns the canonical refs of list in order.
func Refs(list []Attachment) []MediaRef {
	refs := make([]MediaRef, 0, len(list))
	for _, a := range list {
		if a.Placeholder || a.Ref.IsPlaceholder() {
			continue
		}
		refs = append(refs, a.Ref)
	}
	return refs
}

// Canonical returns list without placeholder entries.
func Canonical(list []Attachment) []Attachment {
	out := make([]Attachment, 0, len(list))
	for _, a := range list {
		if !a.Placeholder {
			out = append(out, a)
		}
	}
	return out
}

// Clone copies list.
func Clone(list []Attachment) []Attachment {
	if list == nil {
		return nil
	}
	return append([]Attachment(nil), list...)
}

// Summary counts successful and failed uploads.
func Summary(uploads []Upload) (succeeded, failed int) {
	for _, u := range uploads {
		if u.OK() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
