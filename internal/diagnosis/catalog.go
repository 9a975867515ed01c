package diagnosis

func intField(name, label string, max float64) FieldSpec {
	return FieldSpec{Name: name, Label: label, Type: Integer, Min: 0, Max: max}
}

func realField(name, label string, min, max float64) FieldSpec {
	return FieldSpec{Name: name, Label: label, Type: Real, Min: min, Max: max}
}

func yesNo(name, label string) FieldSpec {
	f := intField(name, label, 1)
	f.Options = []Option{{Value: 0, Label: "No"}, {Value: 1, Label: "Yes"}}
	return f
}

func labels(disease, negative string) Labels {
	return Labels{Negative: "Negative (" + negative + ")", Positive: "Positive (" + disease + ")"}
}

// DefaultCatalog returns the five built-in categories with their default
// artifact file names.
func DefaultCatalog() []CategorySpec {
	sex := intField("Sex", "Sex", 1)
	sex.Options = []Option{{Value: 0, Label: "Female"}, {Value: 1, Label: "Male"}}

	fbs := yesNo("FastingBloodSugar", "Fasting Blood Sugar > 120 mg/dl")

	return []CategorySpec{
		{
			Key:      "diabetes",
			Title:    "Diabetes Prediction",
			Artifact: "diabetes_model.json",
			Fields: []FieldSpec{
				intField("Pregnancies", "Pregnancies", 20),
				intField("Glucose", "Glucose", 200),
				intField("BloodPressure", "Blood Pressure", 150),
				intField("SkinThickness", "Skin Thickness", 100),
				intField("Insulin", "Insulin", 900),
				realField("BMI", "BMI", 0, 70),
				realField("PedigreeFunction", "Diabetes Pedigree Function", 0, 3),
				intField("Age", "Age", 120),
			},
			Labels: labels("Diabetic", "Non-Diabetic"),
		},
		{
			Key:      "heart",
			Title:    "Heart Disease Prediction",
			Artifact: "heart_disease_model.json",
			Fields: []FieldSpec{
				intField("Age", "Age", 120),
				sex,
				intField("ChestPainType", "Chest Pain Type (0-3)", 3),
				intField("RestingBloodPressure", "Resting Blood Pressure", 200),
				intField("Cholesterol", "Cholesterol", 600),
				fbs,
				intField("RestingECG", "Resting ECG (0-2)", 2),
				intField("MaxHeartRate", "Max Heart Rate", 220),
				yesNo("ExerciseAngina", "Exercise Induced Angina"),
				realField("STDepression", "ST Depression", 0, 10),
				intField("STSlope", "Slope of Peak Exercise ST (0-2)", 2),
				intField("MajorVessels", "Major Vessels (0-3)", 3),
				intField("Thalassemia", "Thalassemia (0-3)", 3),
			},
			Labels: labels("Heart Disease", "No Heart Disease"),
		},
		{
			Key:      "parkinsons",
			Title:    "Parkinson's Disease Prediction",
			Artifact: "parkinsons_model.json",
			Fields: []FieldSpec{
				realField("MDVPFo", "MDVP:Fo(Hz)", 0, 300),
				realField("MDVPFhi", "MDVP:Fhi(Hz)", 0, 600),
				realField("MDVPFlo", "MDVP:Flo(Hz)", 0, 300),
				realField("Jitter", "Jitter(%)", 0, 1),
				realField("Shimmer", "Shimmer", 0, 1),
				realField("NHR", "NHR", 0, 1),
				realField("HNR", "HNR", 0, 50),
				realField("RPDE", "RPDE", 0, 1),
				realField("DFA", "DFA", 0, 1),
				realField("Spread1", "spread1", -10, 0),
			},
			Labels: labels("Parkinson's", "No Parkinson's"),
		},
		{
			Key:      "lungs",
			Title:    "Lung Cancer Prediction",
			Artifact: "lungs_disease_model.json",
			Fields: []FieldSpec{
				intField("Age", "Age", 120),
				yesNo("Smoking", "Smoking"),
				yesNo("YellowFingers", "Yellow Fingers"),
				yesNo("Anxiety", "Anxiety"),
				yesNo("ChronicDisease", "Chronic Disease"),
				yesNo("Fatigue", "Fatigue"),
				yesNo("Wheezing", "Wheezing"),
				yesNo("Coughing", "Coughing"),
			},
			Labels: labels("Lung Cancer", "No Lung Cancer"),
		},
		{
			Key:      "thyroid",
			Title:    "Hypo-Thyroid Prediction",
			Artifact: "thyroid_model.json",
			Fields: []FieldSpec{
				intField("Age", "Age", 120),
				realField("TSH", "TSH", 0, 100),
				realField("T3", "T3", 0, 10),
				realField("TT4", "TT4", 0, 300),
				realField("T4U", "T4U", 0, 3),
				realField("FTI", "FTI", 0, 300),
				realField("TBG", "TBG", 0, 100),
			},
			Labels: labels("Hypo-Thyroid", "No Hypo-Thyroid"),
		},
	}
}
