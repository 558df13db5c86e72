package domain

// CanEnter decides whether a deal may move from source (nil on first placement)
// into target. Required fields are checked before the allowed-stages constraint.
func CanEnter(source *Stage, target Stage, deal DealSnapshot) error {
	if source != nil && source.ID == target.ID {
		return ErrValidation("deal is already in stage \"" + target.Name + "\"")
	}
	if missing := deal.MissingFields(target.RequiredFields); len(missing) > 0 {
		return ErrMissingRequiredFields(missing)
	}
	if source != nil && !source.Allows(target.Name) {
		return ErrDisallowedTransition("stage \"" + source.Name + "\" does not allow moving to \"" + target.Name + "\"")
	}
	if !target.IsActive {
		return ErrStageInactive(target.Name)
	}
	return nil
}

// CanDelete rejects deletion of seeded default stages.
func CanDelete(stage Stage) error {
	if stage.IsDefault {
		return ErrProtected("default stage \"" + stage.Name + "\" cannot be deleted")
	}
	return nil
}

// CanMutate rejects changing the order or category of a default stage.
// Resending the current value is allowed. Other fields stay editable.
func CanMutate(stage Stage, patch Patch) error {
	if !stage.IsDefault {
		return nil
	}
	if patch.Category != nil && *patch.Category != stage.Category {
		return ErrImmutable("category of default stage \"" + stage.Name + "\" cannot be changed")
	}
	if patch.Order != nil && *patch.Order != stage.Order {
		return ErrImmutable("order of default stage \"" + stage.Name + "\" cannot be changed")
	}
	return nil
}
