// Package db はユーザーとプロジェクトのテーブルに対するクエリを提供する。
//
// クエリはSQLiteとPostgreSQLの両方で動くように $N 形式のプレースホルダと
// 標準SQLのみで記述する。方言差はマイグレーション（migrations/<dialect>）に閉じ込める。
package db
