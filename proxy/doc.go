// Package proxy implementa o endpoint público: valida a origem, aplica o rate
// limit por cliente, confere o corpo e repassa a chamada ao upstream de LLM,
// escondendo a credencial.
//
// O pipeline de cada requisição é linear e cada etapa pode encerrar com uma
// resposta final:
//
//	preflight -> método -> origem -> rate limit -> corpo -> upstream
package proxy
