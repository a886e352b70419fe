// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import "regexp"

// domainTerms maps lowercase surface phrases to MeSH-style canonical headings.
var domainTerms = map[string]string{
	"heart attack":        "Myocardial Infarction",
	"heart disease":       "Heart Diseases",
	"high blood pressure": "Hypertension",
	"hypertension":        "Hypertension",
	"stroke":              "Stroke",
	"cardiac":             "Heart Diseases",

	"diabetes":       "Diabetes Mellitus",
	"sugar diabetes": "Diabetes Mellitus",
	"thyroid":        "Thyroid Diseases",

	"asthma":       "Asthma",
	"lung disease": "Lung Diseases",
	"pneumonia":    "Pneumonia",
	"copd":         "Pulmonary Disease, Chronic Obstructive",

	"cancer":        "Neoplasms",
	"tumor":         "Neoplasms",
	"breast cancer": "Breast Neoplasms",
	"lung cancer":   "Lung Neoplasms",
	"skin cancer":   "Skin Neoplasms",

	"alzheimer": "Alzheimer Disease",
	"dementia":  "Dementia",
	"parkinson": "Parkinson Disease",
	"epilepsy":  "Epilepsy",
	"seizure":   "Seizures",

	"depression": "Depression",
	"anxiety":    "Anxiety Disorders",
	"ptsd":       "Stress Disorders, Post-Traumatic",
	"bipolar":    "Bipolar Disorder",

	"covid":        "COVID-19",
	"covid-19":     "COVID-19",
	"coronavirus":  "COVID-19",
	"hiv":          "HIV Infections",
	"aids":         "Acquired Immunodeficiency Syndrome",
	"tuberculosis": "Tuberculosis",
	"malaria":      "Malaria",

	"arthritis":    "Arthritis",
	"osteoporosis": "Osteoporosis",
	"joint pain":   "Arthralgia",

	"machine learning":        "Machine Learning",
	"artificial intelligence": "Artificial Intelligence",
	"deep learning":           "Deep Learning",
	"neural network":          "Neural Networks, Computer",
	"gene therapy":            "Genetic Therapy",
	"immunotherapy":           "Immunotherapy",
	"telemedicine":            "Telemedicine",
}

// abbreviations are matched case-sensitively against the raw query so that
// ordinary words ("ms", "er", "ad") do not trigger them.
var abbreviations = map[string]string{
	"MI":   "Myocardial Infarction",
	"CVD":  "Cardiovascular Diseases",
	"CHF":  "Heart Failure",
	"COPD": "Pulmonary Disease, Chronic Obstructive",
	"DM":   "Diabetes Mellitus",
	"HTN":  "Hypertension",
	"CAD":  "Coronary Artery Disease",
	"CKD":  "Renal Insufficiency, Chronic",
	"PTSD": "Stress Disorders, Post-Traumatic",
	"IBD":  "Inflammatory Bowel Diseases",
	"RA":   "Arthritis, Rheumatoid",
	"MS":   "Multiple Sclerosis",
	"ALS":  "Amyotrophic Lateral Sclerosis",
	"AD":   "Alzheimer Disease",
	"PD":   "Parkinson Disease",
	"AIDS": "Acquired Immunodeficiency Syndrome",
	"HIV":  "HIV Infections",
	"TB":   "Tuberculosis",
	"UTI":  "Urinary Tract Infections",
	"ICU":  "Intensive Care Units",
	"ER":   "Emergency Service, Hospital",
}

// synonyms expands general-vocabulary words. Domain terms are never expanded here.
var synonyms = map[string][]string{
	"treatment":     {"therapy", "intervention", "management"},
	"prevention":    {"prophylaxis", "preventive", "preventative"},
	"diagnosis":     {"diagnostic", "screening", "detection"},
	"symptoms":      {"signs", "manifestations", "clinical features"},
	"causes":        {"etiology", "pathogenesis", "risk factors"},
	"elderly":       {"aged", "geriatric", "older adults"},
	"children":      {"pediatric", "kids", "youth"},
	"women":         {"female", "maternal"},
	"men":           {"male", "paternal"},
	"medication":    {"drug", "pharmaceutical", "medicine"},
	"surgery":       {"surgical", "operation", "procedure"},
	"study":         {"research", "investigation", "analysis"},
	"effectiveness": {"efficacy", "outcome", "results"},
}

// relatedTerms lists canonical headings associated with a recognized one.
var relatedTerms = map[string][]string{
	"Diabetes Mellitus": {"Insulin", "Glucose", "Diabetic Complications", "Metabolic Syndrome"},
	"Hypertension":      {"Blood Pressure", "Cardiovascular Diseases", "Antihypertensive Agents"},
	"Heart Diseases":    {"Myocardial Infarction", "Heart Failure", "Coronary Artery Disease"},
	"Neoplasms":         {"Oncology", "Chemotherapy", "Radiotherapy", "Carcinogenesis"},
	"Depression":        {"Antidepressive Agents", "Mental Health", "Anxiety Disorders"},
	"COVID-19":          {"SARS-CoV-2", "Pandemic", "Vaccines", "Respiratory Tract Infections"},
}

type pattern struct {
	name string
	re   *regexp.Regexp
}

// intentPatterns are matched against the normalized query. Stems match any
// inflection ("treat" matches "treatment").
var intentPatterns = []pattern{
	{"treatment", regexp.MustCompile(`\b(treat|therap|intervention|cure|medicat|drug)\w*`)},
	{"diagnosis", regexp.MustCompile(`\b(diagnos|detect|screen|test|identif)\w*`)},
	{"prevention", regexp.MustCompile(`\b(prevent|avoid|prophylax|vaccin|immuniz)\w*`)},
	{"symptoms", regexp.MustCompile(`\b(symptom|sign|manifest|present)\w*`)},
	{"causes", regexp.MustCompile(`\b(caus|etiolog|pathogen|risk factor)\w*`)},
	{"prognosis", regexp.MustCompile(`\b(prognos|outcome|survival|mortality)\w*`)},
	{"epidemiology", regexp.MustCompile(`\b(prevalence|incidence|epidemiol|population)\w*`)},
	{"mechanism", regexp.MustCompile(`\b(mechanism|pathway|molecular|cellular)\w*`)},
}

var demographicPatterns = []pattern{
	{"age", regexp.MustCompile(`\b(infant|child|children|adolescent|adult|elderly|aged|geriatric)\b`)},
	{"gender", regexp.MustCompile(`\b(male|female|men|women|man|woman)\b`)},
	{"population", regexp.MustCompile(`\b(pregnant|pregnancy|postmenopausal|pediatric)\b`)},
}

var studyTypePatterns = []pattern{
	{"randomized controlled trial", regexp.MustCompile(`\b(rct|randomized controlled trial|clinical trial)\b`)},
	{"meta-analysis", regexp.MustCompile(`\b(meta-analysis|systematic review)\b`)},
	{"case study", regexp.MustCompile(`\b(case study|case report)\b`)},
	{"cohort study", regexp.MustCompile(`\b(cohort study|longitudinal)\b`)},
}

var (
	urgencyPattern     = regexp.MustCompile(`\b(urgent|emergency|acute|severe|critical|immediate)\b`)
	uncertaintyPattern = regexp.MustCompile(`\b(possible|potential|may|might|could|uncertain)\b`)
	specificityPattern = regexp.MustCompile(`\b(specific|particular|exact|precise)\b`)
	booleanPattern     = regexp.MustCompile(`\b(and|or|not)\b`)
)

// treatmentPublicationTypes is the advisory publication-type hint for treatment queries.
var treatmentPublicationTypes = []string{"Clinical Trial", "Randomized Controlled Trial"}

// preferenceDomains maps a topical domain to the words that indicate it.
var preferenceDomains = map[string][]string{
	"oncology":   {"cancer", "tumor"},
	"cardiology": {"heart", "cardiac"},
}
