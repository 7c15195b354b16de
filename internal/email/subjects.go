package email

const (
	subjectMatchDigestFmt = "Novos matches de imóveis - %s"
	subjectNoMatchesFmt   = "Matching diário concluído sem novos matches - %s"
)
