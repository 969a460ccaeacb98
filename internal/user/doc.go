// Package user はユーザーアカウントの登録・ログイン・管理を提供する。
//
// Storeはusersテーブルへのアクセスを担い、Auth GateのPrincipalFinderを実装する。
// Serviceは入力検証、パスワードハッシュ、トークン発行を組み合わせたユースケースを提供する。
package user
