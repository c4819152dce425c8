package schema

// Table catalogue. Field order matches the column order of the source
// database tables.

func req(name string, t Type) Field { return Field{Name: name, Type: t, Nullable: false} }
func opt(name string, t Type) Field { return Field{Name: name, Type: t, Nullable: true} }

var registry = map[string]*Schema{}

func register(s *Schema) { registry[s.Name] = s }

func init() {
	register(&Schema{Name: "customers", Fields: []Field{
		req("customer_id", TypeString),
		req("name", TypeString),
		opt("date_created", TypeTimestampMS),
	}})

	register(&Schema{Name: "organisations", Fields: []Field{
		req("organisation_id", TypeString),
		opt("customer_id", TypeString),
		req("name", TypeString),
		opt("date_created", TypeTimestampMS),
	}})

	register(&Schema{Name: "users", Fields: []Field{
		req("user_id", TypeString),
		opt("organisation_id", TypeString),
		opt("customer_id", TypeString),
		opt("name", TypeString),
		req("role", TypeString),
		opt("email", TypeString),
		opt("date_created", TypeTimestampMS),
		opt("created_at", TypeTimestampMS),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "contacts", Fields: []Field{
		req("contact_id", TypeString),
		req("organisation_id", TypeString),
		opt("name", TypeString),
		req("role", TypeString),
		opt("date_created", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "projects", Fields: []Field{
		req("project_id", TypeString),
		req("name", TypeString),
		opt("location", TypeString),
		opt("created_by", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "user_project_assignments", Fields: []Field{
		req("id", TypeString),
		req("assignment_type", TypeString),
		req("project_id", TypeString),
		req("assigner", TypeStringList),
		req("assignee", TypeStringList),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "structure", Fields: []Field{
		req("structure_id", TypeString),
		req("project_id", TypeString),
		req("type", TypeString),
		opt("description", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "structure_areas", Fields: []Field{
		req("area_id", TypeString),
		req("structure_id", TypeString),
		req("component", TypeString),
		opt("shortcode", TypeString),
		opt("created_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "sub_structures", Fields: []Field{
		req("substructure_id", TypeString),
		req("structure_id", TypeString),
		req("project_id", TypeString),
		req("type", TypeString),
		opt("remark", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "borehole", Fields: []Field{
		req("borehole_id", TypeString),
		req("project_id", TypeString),
		opt("structure_id", TypeString),
		opt("substructure_id", TypeString),
		opt("tunnel_no", TypeString),
		opt("location", TypeString),
		opt("chainage", TypeString),
		opt("borehole_number", TypeString),
		opt("msl", TypeString),
		opt("coordinate_latitude", TypeFloat64),
		opt("coordinate_longitude", TypeFloat64),
		opt("boring_method", TypeString),
		opt("hole_diameter", TypeFloat64),
		opt("description", TypeString),
		opt("coordinates", TypeString),
		opt("status", TypeString),
		opt("created_by_user_id", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "boreloge", Fields: []Field{
		req("borelog_id", TypeString),
		req("substructure_id", TypeString),
		req("project_id", TypeString),
		req("type", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "borelog_details", Fields: append(borelogMeasurementFields(),
		opt("location", TypeString),
		opt("chainage_km", TypeFloat64),
		opt("job_code", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
	)})

	register(&Schema{Name: "borelog_versions", Fields: append(borelogVersionKeyFields(),
		opt("created_by_user_id", TypeString),
		req("status", TypeString),
		opt("approved_by", TypeString),
		opt("approved_at", TypeTimestampMS),
		req("created_at", TypeTimestampMS),
	)})

	register(&Schema{Name: "borelog_submissions", Fields: []Field{
		req("submission_id", TypeString),
		req("project_id", TypeString),
		req("structure_id", TypeString),
		req("borehole_id", TypeString),
		req("version_number", TypeInt32),
		req("edited_by", TypeString),
		opt("timestamp", TypeTimestampMS),
		req("form_data", TypeString),
		req("status", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
	}})

	register(&Schema{Name: "borelog_assignments", Fields: []Field{
		req("assignment_id", TypeString),
		opt("borelog_id", TypeString),
		opt("structure_id", TypeString),
		opt("substructure_id", TypeString),
		req("assigned_site_engineer", TypeString),
		req("assigned_by", TypeString),
		opt("assigned_at", TypeTimestampMS),
		req("status", TypeString),
		opt("notes", TypeString),
		opt("expected_completion_date", TypeTimestampMS),
		opt("completed_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "borelog_images", Fields: []Field{
		req("image_id", TypeString),
		req("borelog_id", TypeString),
		req("image_url", TypeString),
		opt("uploaded_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "borelog_review_comments", Fields: []Field{
		req("comment_id", TypeString),
		req("borelog_id", TypeString),
		req("version_no", TypeInt32),
		req("comment_type", TypeString),
		req("comment_text", TypeString),
		req("commented_by", TypeString),
		opt("commented_at", TypeTimestampMS),
		opt("resolved", TypeBool),
		opt("resolved_at", TypeTimestampMS),
		opt("resolved_by", TypeString),
	}})

	register(&Schema{Name: "stratum_layers", Fields: []Field{
		req("id", TypeString),
		req("borelog_id", TypeString),
		req("version_no", TypeInt32),
		req("layer_order", TypeInt32),
		opt("description", TypeString),
		opt("depth_from_m", TypeFloat64),
		opt("depth_to_m", TypeFloat64),
		opt("thickness_m", TypeFloat64),
		opt("return_water_colour", TypeString),
		opt("water_loss", TypeString),
		opt("borehole_diameter", TypeFloat64),
		opt("remarks", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
	}})

	register(&Schema{Name: "stratum_sample_points", Fields: []Field{
		req("id", TypeString),
		req("stratum_layer_id", TypeString),
		req("sample_order", TypeInt32),
		opt("sample_type", TypeString),
		opt("depth_mode", TypeString),
		opt("depth_single_m", TypeFloat64),
		opt("depth_from_m", TypeFloat64),
		opt("depth_to_m", TypeFloat64),
		opt("run_length_m", TypeFloat64),
		opt("spt_15cm_1", TypeInt32),
		opt("spt_15cm_2", TypeInt32),
		opt("spt_15cm_3", TypeInt32),
		opt("n_value", TypeInt32),
		opt("total_core_length_cm", TypeFloat64),
		opt("tcr_percent", TypeFloat64),
		opt("rqd_length_cm", TypeFloat64),
		opt("rqd_percent", TypeFloat64),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
	}})

	register(&Schema{Name: "lab_test_assignments", Fields: []Field{
		req("assignment_id", TypeString),
		req("borelog_id", TypeString),
		req("version_no", TypeInt32),
		req("sample_ids", TypeStringList),
		req("assigned_by", TypeString),
		req("assigned_to", TypeString),
		opt("assigned_at", TypeTimestampMS),
		opt("due_date", TypeTimestampMS),
		opt("priority", TypeString),
		opt("notes", TypeString),
	}})

	register(&Schema{Name: "unified_lab_reports", Fields: []Field{
		req("report_id", TypeString),
		req("assignment_id", TypeString),
		req("borelog_id", TypeString),
		req("sample_id", TypeString),
		req("project_name", TypeString),
		req("borehole_no", TypeString),
		opt("client", TypeString),
		req("test_date", TypeTimestampMS),
		req("tested_by", TypeString),
		req("checked_by", TypeString),
		req("approved_by", TypeString),
		req("test_types", TypeString),
		req("soil_test_data", TypeString),
		req("rock_test_data", TypeString),
		req("status", TypeString),
		opt("remarks", TypeString),
		opt("submitted_at", TypeTimestampMS),
		opt("approved_at", TypeTimestampMS),
		opt("rejected_at", TypeTimestampMS),
		opt("rejection_reason", TypeString),
		req("created_at", TypeTimestampMS),
		req("updated_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
	}})

	register(&Schema{Name: "lab_report_versions", Fields: []Field{
		req("version_id", TypeString),
		req("report_id", TypeString),
		req("version_no", TypeInt32),
		opt("assignment_id", TypeString),
		req("borelog_id", TypeString),
		req("sample_id", TypeString),
		req("project_name", TypeString),
		req("borehole_no", TypeString),
		opt("client", TypeString),
		req("test_date", TypeTimestampMS),
		req("tested_by", TypeString),
		req("checked_by", TypeString),
		req("approved_by", TypeString),
		req("test_types", TypeString),
		req("soil_test_data", TypeString),
		req("rock_test_data", TypeString),
		req("status", TypeString),
		opt("remarks", TypeString),
		opt("submitted_at", TypeTimestampMS),
		opt("approved_at", TypeTimestampMS),
		opt("rejected_at", TypeTimestampMS),
		opt("returned_at", TypeTimestampMS),
		opt("rejection_reason", TypeString),
		opt("review_comments", TypeString),
		req("created_by_user_id", TypeString),
		req("created_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "lab_report_comments", Fields: []Field{
		req("comment_id", TypeString),
		req("report_id", TypeString),
		req("version_no", TypeInt32),
		req("comment_type", TypeString),
		req("comment_text", TypeString),
		req("commented_by_user_id", TypeString),
		opt("commented_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "soil_test_samples", Fields: []Field{
		req("sample_id", TypeString),
		req("report_id", TypeString),
		opt("layer_no", TypeInt32),
		opt("sample_no", TypeString),
		opt("depth_from", TypeFloat64),
		opt("depth_to", TypeFloat64),
		opt("natural_moisture_content", TypeFloat64),
		opt("bulk_density", TypeFloat64),
		opt("dry_density", TypeFloat64),
		opt("specific_gravity", TypeFloat64),
		opt("void_ratio", TypeFloat64),
		opt("porosity", TypeFloat64),
		opt("degree_of_saturation", TypeFloat64),
		opt("liquid_limit", TypeFloat64),
		opt("plastic_limit", TypeFloat64),
		opt("plasticity_index", TypeFloat64),
		opt("shrinkage_limit", TypeFloat64),
		opt("gravel_percentage", TypeFloat64),
		opt("sand_percentage", TypeFloat64),
		opt("silt_percentage", TypeFloat64),
		opt("clay_percentage", TypeFloat64),
		opt("cohesion", TypeFloat64),
		opt("angle_of_internal_friction", TypeFloat64),
		opt("unconfined_compressive_strength", TypeFloat64),
		opt("compression_index", TypeFloat64),
		opt("recompression_index", TypeFloat64),
		opt("preconsolidation_pressure", TypeFloat64),
		opt("permeability_coefficient", TypeFloat64),
		opt("cbr_value", TypeFloat64),
		opt("soil_classification", TypeString),
		opt("soil_description", TypeString),
		opt("remarks", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "rock_test_samples", Fields: []Field{
		req("sample_id", TypeString),
		req("report_id", TypeString),
		opt("layer_no", TypeInt32),
		opt("sample_no", TypeString),
		opt("depth_from", TypeFloat64),
		opt("depth_to", TypeFloat64),
		opt("natural_moisture_content", TypeFloat64),
		opt("bulk_density", TypeFloat64),
		opt("dry_density", TypeFloat64),
		opt("specific_gravity", TypeFloat64),
		opt("porosity", TypeFloat64),
		opt("water_absorption", TypeFloat64),
		opt("unconfined_compressive_strength", TypeFloat64),
		opt("point_load_strength_index", TypeFloat64),
		opt("tensile_strength", TypeFloat64),
		opt("shear_strength", TypeFloat64),
		opt("youngs_modulus", TypeFloat64),
		opt("poissons_ratio", TypeFloat64),
		opt("slake_durability_index", TypeFloat64),
		opt("soundness_loss", TypeFloat64),
		opt("los_angeles_abrasion_value", TypeFloat64),
		opt("rock_classification", TypeString),
		opt("rock_description", TypeString),
		opt("rock_quality_designation", TypeFloat64),
		opt("remarks", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "final_lab_reports", Fields: []Field{
		req("final_report_id", TypeString),
		req("original_report_id", TypeString),
		opt("assignment_id", TypeString),
		req("borelog_id", TypeString),
		req("sample_id", TypeString),
		req("project_name", TypeString),
		req("borehole_no", TypeString),
		opt("client", TypeString),
		req("test_date", TypeTimestampMS),
		req("tested_by", TypeString),
		req("checked_by", TypeString),
		req("approved_by", TypeString),
		req("test_types", TypeString),
		req("soil_test_data", TypeString),
		req("rock_test_data", TypeString),
		req("final_version_no", TypeInt32),
		req("approval_date", TypeTimestampMS),
		req("approved_by_user_id", TypeString),
		opt("customer_notes", TypeString),
		opt("created_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "pending_csv_uploads", Fields: []Field{
		req("upload_id", TypeString),
		req("project_id", TypeString),
		req("structure_id", TypeString),
		req("substructure_id", TypeString),
		req("uploaded_by", TypeString),
		opt("uploaded_at", TypeTimestampMS),
		opt("file_name", TypeString),
		opt("file_type", TypeString),
		req("total_records", TypeInt32),
		req("borelog_header_data", TypeString),
		req("stratum_rows_data", TypeString),
		req("status", TypeString),
		opt("submitted_for_approval_at", TypeTimestampMS),
		opt("approved_by", TypeString),
		opt("approved_at", TypeTimestampMS),
		opt("rejected_by", TypeString),
		opt("rejected_at", TypeTimestampMS),
		opt("returned_by", TypeString),
		opt("returned_at", TypeTimestampMS),
		opt("approval_comments", TypeString),
		opt("rejection_reason", TypeString),
		opt("revision_notes", TypeString),
		opt("processed_at", TypeTimestampMS),
		opt("created_borelog_id", TypeString),
		opt("error_message", TypeString),
	}})

	register(&Schema{Name: "substructure_assignments", Fields: []Field{
		req("assignment_id", TypeString),
		req("borelog_id", TypeString),
		req("substructure_id", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("updated_at", TypeTimestampMS),
	}})

	register(&Schema{Name: "geological_log", Fields: append(borelogMeasurementFields(),
		opt("location", TypeString),
		opt("chainage_km", TypeFloat64),
		opt("job_code", TypeString),
		opt("created_at", TypeTimestampMS),
		opt("created_by_user_id", TypeString),
	)})
}

// borelogMeasurementFields is the field block shared by the borelog detail
// tables, keyed by borelog_id alone.
func borelogMeasurementFields() []Field {
	return append([]Field{
		req("borelog_id", TypeString),
	}, measurementFields()...)
}

// borelogVersionKeyFields keys the measurement block by (borelog_id,
// version_no).
func borelogVersionKeyFields() []Field {
	return append([]Field{
		req("borelog_id", TypeString),
		req("version_no", TypeInt32),
	}, measurementFields()...)
}

func measurementFields() []Field {
	return []Field{
		opt("number", TypeString),
		opt("msl", TypeString),
		opt("boring_method", TypeString),
		opt("hole_diameter", TypeFloat64),
		opt("commencement_date", TypeTimestampMS),
		opt("completion_date", TypeTimestampMS),
		opt("standing_water_level", TypeFloat64),
		opt("termination_depth", TypeFloat64),
		opt("coordinate_latitude", TypeFloat64),
		opt("coordinate_longitude", TypeFloat64),
		opt("permeability_test_count", TypeString),
		opt("spt_vs_test_count", TypeString),
		opt("undisturbed_sample_count", TypeString),
		opt("disturbed_sample_count", TypeString),
		opt("water_sample_count", TypeString),
		opt("stratum_description", TypeString),
		opt("stratum_depth_from", TypeFloat64),
		opt("stratum_depth_to", TypeFloat64),
		opt("stratum_thickness_m", TypeFloat64),
		opt("sample_event_type", TypeString),
		opt("sample_event_depth_m", TypeFloat64),
		opt("run_length_m", TypeFloat64),
		opt("spt_blows_per_15cm", TypeFloat64),
		opt("n_value_is_2131", TypeString),
		opt("total_core_length_cm", TypeFloat64),
		opt("tcr_percent", TypeFloat64),
		opt("rqd_length_cm", TypeFloat64),
		opt("rqd_percent", TypeFloat64),
		opt("return_water_colour", TypeString),
		opt("water_loss", TypeString),
		opt("borehole_diameter", TypeFloat64),
		opt("remarks", TypeString),
	}
}
