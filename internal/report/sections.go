// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

// fieldMapping pairs a display label with the (trimmed) CSV column that
// feeds it.
type fieldMapping struct {
	Label  string
	Column string
}

// sectionDef is one fixed report section. Order of definitions is the
// order of sections in the document; order of fields is the order of rows
// within a section.
type sectionDef struct {
	Title  string
	Fields []fieldMapping
}

// documentationSection is the index of the section that carries the image
// block.
const documentationSection = 6

// sectionDefs mirrors the assessment form layout. Column names reproduce
// the form export verbatim (trimmed), including its spelling quirks.
var sectionDefs = []sectionDef{
	{
		Title: "1. General Information",
		Fields: []fieldMapping{
			{"Date of Assessment", "Date of Assessment"},
			{"Assessor's Name", "Assessor's Name"},
			{"Supervisor", "Supervisor"},
			{"Organization", "Organization"},
			{"Monument Reference", "Monument Reference"},
			{"Monument Name", "Monument Name"},
			{"Ownership", "Ownership"},
		},
	},
	{
		Title: "2. Location Information",
		Fields: []fieldMapping{
			{"Governorate", "Governorate"},
			{"District", "District"},
			{"City/Village", "City-Village"},
			{"Location", "Location"},
		},
	},
	{
		Title: "3. Preliminary Conditions",
		Fields: []fieldMapping{
			{"Observed Structural Conditions", "Observed structural conditions"},
			{"Exterior Walls Condition", "Exterior walls condition"},
			{"Roof Conditions", "Roof Conditions"},
			{"Major Architectural Failure", "Major Architectural Failure"},
			{"Location of Major Damage", "Location of Major Damage"},
		},
	},
	{
		Title: "4. Evidence of Conflict or Damage",
		Fields: []fieldMapping{
			{"Evidence of Armed Conflict", "Evidence of Armed Conflict"},
			{"Fire or Smoke Damage", "Fire or Smoke Damage"},
			{"Looting or Vandalism", "Looting or Vandalism"},
			{"Conflict-Specific Damage Indicator", "Conflict-Specific damage indicator"},
		},
	},
	{
		Title: "5. Visible Damage",
		Fields: []fieldMapping{
			{"Significant Cultural/Religious Symbol Damage", "Significant Cultural or Religous Symbol Damage"},
			{"Visible Damage to Sculptures/Carvings", "Visible Damage to Sculptures, Catvings and Facade"},
			{"Damage to Decorative Elements", "Damage to decorative elements"},
		},
	},
	{
		Title: "6. Environmental Concerns",
		Fields: []fieldMapping{
			{"Water Infiltration and Weather Exposure", "Water Infiltration and Weather Exposure"},
			{"Vegetation Overgrowth", "Vegetation Overgrowth"},
			{"Secondary Hazards Present", "Secondary Hazards present"},
		},
	},
	{
		Title: "7. Documentation and Evidence",
		Fields: []fieldMapping{
			{"Satellite Imagery Observations", "Satellite Imagery Observations"},
			{"Eyewitness Report", "Eyewitness Report"},
			{"Testimonials", "Testimonials"},
		},
	},
	{
		Title: "8. Risk Assessment",
		Fields: []fieldMapping{
			{"Potential Hazards to Public and Site", "Potential Hazards to the public and site"},
			{"Urgent Stabilization Required", "Urgent Stabilization Required"},
			{"Security Measures Needed", "Security measures needed"},
			{"Likelihood of Continued Damage", "Likelihood of continued damage"},
		},
	},
	{
		Title: "9. Historical or Cultural Significance",
		Fields: []fieldMapping{
			{"Historical or Cultural Significance", "Historical or Cultural Significance"},
			{"Significance for Local Population", "Significance for local population"},
			{"Additional References", "Additional References"},
		},
	},
}

// Logo filenames expected next to the input CSV. Absence is skipped, not
// an error.
var logoFilenames = []string{"Biladi logo.png", "CER Logo.png"}
