package rdf

// Namespaces used by fragments and queries.
const (
	RDF           = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFType       = RDF + "type"
	RDFSubject    = RDF + "subject"
	RDFPredicate  = RDF + "predicate"
	RDFObject     = RDF + "object"
	RDFLangString = RDF + "langString"

	XSD        = "http://www.w3.org/2001/XMLSchema#"
	XSDString  = XSD + "string"
	XSDBoolean = XSD + "boolean"
	XSDInteger = XSD + "integer"
	XSDDecimal = XSD + "decimal"
	XSDDouble  = XSD + "double"
	XSDFloat   = XSD + "float"

	Hydra              = "http://www.w3.org/ns/hydra/core#"
	HydraSearch        = Hydra + "search"
	HydraTemplate      = Hydra + "template"
	HydraMapping       = Hydra + "mapping"
	HydraProperty      = Hydra + "property"
	HydraVariable      = Hydra + "variable"
	HydraTotalItems    = Hydra + "totalItems"
	HydraFreetextQuery = Hydra + "freetextQuery"

	Void        = "http://rdfs.org/ns/void#"
	VoidTriples = Void + "triples"

	FOAF             = "http://xmlns.com/foaf/0.1/"
	FOAFPrimaryTopic = FOAF + "primaryTopic"

	DBpedia    = "http://dbpedia.org/resource/"
	DBpediaOWL = "http://dbpedia.org/ontology/"
)
