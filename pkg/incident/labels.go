package incident

var fieldLabels = map[Field]string{
	FieldTypeOfAct:           "Type of observance",
	FieldPrefix:              "Prefix",
	FieldFirstName:           "First name",
	FieldMiddleName:          "Middle name",
	FieldLastName:            "Last name",
	FieldEmploymentType:      "Employment type",
	FieldEmail:               "Email",
	FieldPhone:               "Phone number",
	FieldDate:                "Date",
	FieldTime:                "Time",
	FieldAMPM:                "AM/PM",
	FieldLocation:            "Location",
	FieldUnitName:            "Unit name",
	FieldAreaName:            "Area",
	FieldReportedToOfficials: "Reported to officials",
	FieldDetails:             "Details",
	FieldMailGroupID:         "Mail group",
}

// Label returns the human-readable prompt label for field.
func Label(field Field) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return string(field)
}
