// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// Auth Gateによる認証・認可、リクエストID付与、リクエストログ、
// Prometheusメトリクス、パニックリカバリ、CORS設定を含む。
// エラーレスポンスは全て {"error": <種別>, "message": <メッセージ>} の形式で返す。
package middleware
