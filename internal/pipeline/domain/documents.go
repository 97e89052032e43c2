package domain

// StageSatisfied reports whether every required document type of the
// definition is attached to the stage state.
func StageSatisfied(def StageDefinition, state StageState) bool {
	return len(MissingDocuments(def, state)) == 0
}

// MissingDocuments returns the required document types not yet attached, in
// registry order.
func MissingDocuments(def StageDefinition, state StageState) []string {
	attached := make(map[string]struct{}, len(state.AttachedDocumentTypes))
	for _, docType := range state.AttachedDocumentTypes {
		attached[docType] = struct{}{}
	}

	var missing []string
	for _, required := range def.RequiredDocumentTypes {
		if _, ok := attached[required]; !ok {
			missing = append(missing, required)
		}
	}
	return missing
}

// AttachDocument records a document type on a stage of a cloned record and
// returns the updated copy. Attaching is idempotent: a type already present
// leaves the record unchanged (the clone is still returned). The byte-level
// upload is the document storage collaborator's business; only the type
// identifier is tracked here.
func AttachDocument(reg *Registry, record *PipelineRecord, stageID, documentType string) (*PipelineRecord, error) {
	if _, err := reg.StageFor(record.Direction, stageID); err != nil {
		return nil, err
	}

	updated := record.Clone()
	state := updated.StageState(stageID)
	if state == nil {
		return nil, &UnknownStageError{Direction: record.Direction, StageID: stageID}
	}

	for _, existing := range state.AttachedDocumentTypes {
		if existing == documentType {
			return updated, nil
		}
	}

	state.AttachedDocumentTypes = append(state.AttachedDocumentTypes, documentType)
	return updated, nil
}
