package attachment

// Merge reconciles the displayed collection after a batch upload.
//
// current is the collection as displayed, placeholders the entries created for this
// batch, uploads their outcomes and snap the server's answer to the list update.
// Pre-existing entries keep their relative order and new canonical entries are
// appended in placeholder order. Failed uploads drop their placeholder. The result
// never contains two entries for the same ref.
func Merge(current, placeholders []Attachment, uploads []Upload, snap Snapshot) []Attachment {
	batch := make(map[string]bool, len(placeholders))
	for _, p := range placeholders {
		batch[p.ID] = true
	}

	uploaded := make(map[MediaRef]Upload, len(uploads))
	byPlaceholder := make(map[string]Upload, len(uploads))
	for _, u := range uploads {
		if !u.OK() {
			continue
		}
		uploaded[u.Ref] = u
		byPlaceholder[u.PlaceholderID] = u
	}

	server := snap.lookup()
	seen := make(map[MediaRef]bool, len(current)+len(uploads))
	out := make([]Attachment, 0, len(current)+len(uploads))

	for _, a := range current {
		if a.Placeholder && batch[a.ID] {
			continue
		}
		if a.Placeholder {
			// Another batch still owns it.
			if !seen[a.Ref] {
				seen[a.Ref] = true
				out = append(out, a)
			}
			continue
		}
		if seen[a.Ref] {
			continue
		}
		if _, listed := server[a.Ref]; snap.Kind == Full && !listed {
			if _, fresh := uploaded[a.Ref]; !fresh {
				continue
			}
		}
		seen[a.Ref] = true
		out = append(out, resolve(a, uploaded, server))
	}

	for _, p := range placeholders {
		u, ok := byPlaceholder[p.ID]
		if !ok || seen[u.Ref] {
			continue
		}
		seen[u.Ref] = true
		local := Attachment{ID: p.ID, Ref: u.Ref, Title: p.Title, Size: p.Size}
		out = append(out, resolve(local, uploaded, server))
	}

	return out
}

// Reconcile merges a server snapshot into the displayed collection when no batch is
// pending. Local metadata backfills what a partial snapshot omits.
func Reconcile(current []Attachment, snap Snapshot) []Attachment {
	if snap.Kind == Partial {
		return Merge(current, nil, nil, snap)
	}

	local := make(map[MediaRef]Attachment, len(current))
	for _, a := range current {
		local[a.Ref] = a
	}
	out := make([]Attachment, 0, len(snap.Entries))
	seen := make(map[MediaRef]bool, len(snap.Entries))
	for _, e := range snap.Entries {
		if seen[e.Ref] {
			continue
		}
		seen[e.Ref] = true
		out = append(out, backfill(e, local[e.Ref]))
	}
	for _, a := range current {
		if a.Placeholder && !seen[a.Ref] {
			seen[a.Ref] = true
			out = append(out, a)
		}
	}
	return out
}

func resolve(local Attachment, uploaded map[MediaRef]Upload, server map[MediaRef]Entry) Attachment {
	if u, ok := uploaded[local.Ref]; ok {
		a := Attachment{ID: local.ID, Ref: u.Ref, Title: u.Filename, Size: u.Size}
		if e, ok := server[u.Ref]; ok && e.ID != "" {
			a.ID = e.ID
		}
		if a.Title == "" {
			a.Title = local.Title
		}
		return a
	}
	if e, ok := server[local.Ref]; ok {
		return backfill(e, local)
	}
	return local
}

func backfill(e Entry, local Attachment) Attachment {
	a := Attachment{ID: e.ID, Ref: e.Ref, Title: e.Title, Size: e.Size}
	if a.ID == "" {
		a.ID = local.ID
	}
	if a.Title == "" {
		a.Title = local.Title
	}
	if a.Size == 0 {
		a.Size = local.Size
	}
	return a
}
